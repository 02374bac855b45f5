package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"walletcheckin/pkg/auth"
	"walletcheckin/pkg/ui"
)

var loginURL string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage backend deploy keys",
	Long: `Store deploy keys for backend deployments.

Keys are kept in the system keychain when one is available and in an
encrypted file in the config directory otherwise. WALLETCHECKIN_DEPLOY_KEY
is used as a last resort.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a deploy key",
	Long: `Store a deploy key under name. Name it after the deployment so that
'walletcheckin run --deployment <name>' picks it up; without a name the key
is stored as "default".`,
	Example: `  # Key for a hosted deployment
  walletcheckin auth login happy-otter-123

  # Key for a self-hosted backend
  walletcheckin auth login staging --url https://backend.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove a stored deploy key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored deploy keys",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().StringVar(&loginURL, "url", "", "backend URL to remember with the key")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowDeployKeyGuide(os.Stdout)

	if existing, err := manager.Retrieve(name); err == nil && existing != nil {
		fmt.Printf("A deploy key for %s already exists. Replace it? (y/N): ", name)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			ui.PrintInfo("Unchanged", name)
			return nil
		}
	}

	fmt.Print("Deploy key: ")
	key, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read deploy key: %w", err)
	}
	if key == "" {
		return fmt.Errorf("deploy key cannot be empty")
	}

	cred := &auth.Credential{
		Name:       name,
		DeployKey:  key,
		BackendURL: strings.TrimRight(loginURL, "/"),
	}
	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("failed to store deploy key: %w", err)
	}

	ui.PrintSuccess("Deploy key stored for " + name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = args[0]
	}

	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove deploy key: %w", err)
	}
	ui.PrintSuccess("Deploy key removed for " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list deploy keys: %w", err)
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored deploy keys", "use 'walletcheckin auth login' to add one")
		return nil
	}

	out := cmd.OutOrStdout()
	ui.PrintHighlight("Stored deploy keys")
	for i, c := range creds {
		s := auth.Sanitize(c)
		fmt.Fprintf(out, "%d. %s\n", i+1, s.Name)
		fmt.Fprintf(out, "   Key: %s\n", s.DeployKey)
		if s.BackendURL != "" {
			fmt.Fprintf(out, "   URL: %s\n", s.BackendURL)
		}
		if !s.LastModified.IsZero() {
			fmt.Fprintf(out, "   Last modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line otherwise
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		key, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(key)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
