package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowDeployKeyGuide explains where to find a backend deploy key
func ShowDeployKeyGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "DEPLOY KEY")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Calls that need admin rights are authenticated with a deploy key.")
	fmt.Fprintln(w, "Public login and check-in functions work without one.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Open the backend dashboard and select the deployment.")
	fmt.Fprintln(w, "2. Go to Settings > URL & Deploy Key.")
	fmt.Fprintln(w, "3. Generate a production deploy key and copy it.")
	fmt.Fprintln(w, "4. Run: walletcheckin auth login --deployment <name>")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "The key can also be passed in %s.\n", EnvDeployKey)
	fmt.Fprintln(w, "Keys are kept in the system keychain when available, otherwise in an")
	fmt.Fprintln(w, "encrypted file in the config directory.")
}
