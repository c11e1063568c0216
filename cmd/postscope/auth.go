package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"postscope/pkg/auth"
	"postscope/pkg/ui"
)

var loginNote string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API keys",
	Long: `Manage stored SocialData API keys.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Use --profile to keep several keys side by side.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key securely",
	Example: `  postscope auth login
  postscope auth login --profile work --note "team account"`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored key for a profile",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles with masked keys",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which key the current profile resolves to",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, authListCmd, authStatusCmd)

	loginCmd.Flags().StringVar(&loginNote, "note", "", "free-form note stored with the key")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	auth.ShowAPIKeyGuide(os.Stdout)
	fmt.Println()

	if existing, _ := manager.Retrieve(profile); existing != nil {
		fmt.Printf("A key is already stored for profile '%s'. Replace it? (y/N): ", profile)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return nil
		}
	}

	fmt.Print("API key (hidden): ")
	key, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if len(key) < 8 {
		return errors.New("that does not look like an API key")
	}

	if err := manager.Store(&auth.Credential{
		Profile:      profile,
		APIKey:       key,
		Note:         loginNote,
		LastModified: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("API key stored for profile '%s'", profile))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(profile); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Removed API key for profile '%s'", profile))
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintWarning("No stored API keys. Run 'postscope auth login'.")
		return nil
	}

	for _, c := range creds {
		c = auth.Sanitize(c)
		line := fmt.Sprintf("%-12s %s", c.Profile, c.APIKey)
		if c.Note != "" {
			line += "  " + ui.Dim(c.Note)
		}
		if c.Profile == profile {
			line = ui.Green("* ") + line
		} else {
			line = "  " + line
		}
		fmt.Println(line)
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if err := resolveAPIKey(cfg); err != nil {
		ui.PrintWarning("Not configured", err)
		return nil
	}
	ui.PrintInfo("Profile", profile)
	ui.PrintInfo("API key", auth.MaskKey(cfg.API.APIKey))
	return nil
}

// readPassword reads a line without echo when stdin is a terminal
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
