package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"wallgrab/pkg/auth"
	"wallgrab/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage feed credentials",
	Long: `Manage the bearer tokens used to read private Reddit listings.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - WALLGRAB_FEED_TOKEN environment variable (read only)

Never share your tokens or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a feed token securely",
	Long: `Store a Reddit OAuth bearer token in the system keychain or encrypted file.

You will be prompted for:
  - Reddit username (if not provided)
  - Access token (hidden while typing)
  - User Agent (optional, press Enter for default)`,
	Example: `  # Interactive login
  wallgrab auth login

  # Login with username
  wallgrab auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored feed credentials.

If no username is provided, you will be shown a list of stored accounts
to choose from. You can also remove all accounts at once.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Run:   runList,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials a run would use",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(statusCmd)
}

func newCredentialManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()
	reader := bufio.NewReader(os.Stdin)

	auth.ShowTokenGuide(os.Stdout)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		fmt.Print("Reddit username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("\nAccount '%s' already exists. Replace the token? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("\nAccess token (hidden): ")
	token, err := readSecret(reader)
	if err != nil {
		ui.PrintError("Failed to read token", err.Error())
		os.Exit(1)
	}
	bare := strings.TrimPrefix(strings.TrimPrefix(token, "Bearer "), "bearer ")
	if len(bare) < 10 || strings.ContainsAny(bare, " \t") {
		ui.PrintError("That does not look like an access token")
		os.Exit(1)
	}

	fmt.Print("User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Username:     username,
		Token:        token,
		UserAgent:    strings.TrimSpace(userAgent),
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Account saved: " + username)
	ui.PrintInfo("Token", auth.SanitizeAccount(account).Token)
	fmt.Println("\nRead your upvoted posts with:")
	fmt.Printf("  wallgrab run --source reddit --user %s --listing upvoted\n", username)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored accounts found")
		return
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")
	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice == len(accounts)+1:
		fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all accounts", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("All accounts removed")
	case choice > 0 && choice <= len(accounts):
		name := accounts[choice-1].Username
		if err := manager.Delete(name); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + name)
	default:
		ui.PrintError("Invalid choice")
		os.Exit(1)
	}
}

func runList(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'wallgrab auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	account, err := manager.RetrieveDefault()
	if err != nil {
		ui.PrintWarning("No credentials available", "only public subreddit listings can be read")
		return
	}

	source := "stored credentials"
	if os.Getenv(auth.EnvToken) != "" {
		source = auth.EnvToken
	}
	sanitized := auth.SanitizeAccount(account)
	ui.PrintInfo("Account", sanitized.Username)
	ui.PrintInfo("Token", sanitized.Token)
	ui.PrintInfo("Source", source)
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
