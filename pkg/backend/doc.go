// Package backend is a client for the hosted backend's function API.
//
// Every call is a POST to {base}/api/mutation carrying the function path and
// its arguments. The backend answers with a status envelope:
//
//	{"status": "success", "value": {...}, "logLines": [...]}
//	{"status": "error", "errorMessage": "..."}
//
// Transport failures, non-2xx statuses and error envelopes all come back as
// *errors.Error values so callers can retry them uniformly.
//
//	client, err := backend.NewClientFromConfig(cfg, log)
//	res, err := client.Login(ctx, "0xabc...")
//	if points, ok := res.Points("points"); ok {
//		...
//	}
package backend
