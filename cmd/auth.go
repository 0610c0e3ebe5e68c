package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/focusflow/credentials"
)

// minKeyLength rejects obviously truncated keys.
const minKeyLength = 8

// AuthDeps holds the dependencies for the auth commands.
type AuthDeps struct {
	NewStore func() (*credentials.Store, error)
	// ReadSecret prompts for a value without echoing it.
	ReadSecret func(prompt string, in io.Reader, out io.Writer) (string, error)
}

// DefaultAuthDeps returns the default dependencies for production use.
func DefaultAuthDeps() *AuthDeps {
	return &AuthDeps{
		NewStore:   credentials.NewStore,
		ReadSecret: readSecret,
	}
}

// loginOptions holds the auth login flags.
type loginOptions struct {
	geminiKeys     []string
	whisperKey     string
	appendKeys     bool
	nonInteractive bool
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(deps *AuthDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAuthDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage service API keys",
		Long: `Manage the API keys used for embeddings, summaries and transcription.

Keys are stored encrypted in ~/.focusflow/credentials.yaml. The encryption key
comes from FOCUSFLOW_ENCRYPTION_KEY, FOCUSFLOW_PASSPHRASE or the system keyring.

Environment variables take precedence over stored keys:
  FOCUSFLOW_GEMINI_API_KEY    a single Gemini key
  FOCUSFLOW_GEMINI_API_KEYS   comma-separated Gemini keys, rotated on quota errors
  FOCUSFLOW_WHISPER_API_KEY   the transcription service key`,
	}

	cmd.AddCommand(newLoginCommand(deps))
	cmd.AddCommand(newLogoutCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	return cmd
}

func newLoginCommand(deps *AuthDeps) *cobra.Command {
	opts := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API keys",
		Long: `Store API keys in the encrypted credential file.

Without flags the keys are prompted for with hidden input. Pass --gemini-key
more than once to configure several keys for rotation.`,
		Example: `  # Interactive
  focusflow auth login

  # Two Gemini keys and a Whisper key
  focusflow auth login --gemini-key AIza... --gemini-key AIza... --whisper-key sk-...

  # Add a key to the ones already stored
  focusflow auth login --append --gemini-key AIza...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, deps, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.geminiKeys, "gemini-key", nil, "Gemini API key (repeatable)")
	cmd.Flags().StringVar(&opts.whisperKey, "whisper-key", "", "Whisper API key")
	cmd.Flags().BoolVar(&opts.appendKeys, "append", false, "Add Gemini keys to the stored ones instead of replacing them")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Fail instead of prompting for input")
	return cmd
}

func runLogin(cmd *cobra.Command, deps *AuthDeps, opts *loginOptions) error {
	out := cmd.OutOrStdout()
	store, err := deps.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	creds := &credentials.Credentials{
		GeminiAPIKeys: trimKeys(opts.geminiKeys),
		WhisperAPIKey: strings.TrimSpace(opts.whisperKey),
	}

	if creds.IsEmpty() {
		if opts.nonInteractive {
			return errors.New("no keys provided and --non-interactive flag set")
		}
		fmt.Fprintln(out, "Enter your API keys. Leave a prompt empty to skip it.")
		gemini, err := deps.ReadSecret("Gemini API key: ", cmd.InOrStdin(), out)
		if err != nil {
			return fmt.Errorf("reading Gemini key: %w", err)
		}
		whisper, err := deps.ReadSecret("Whisper API key: ", cmd.InOrStdin(), out)
		if err != nil {
			return fmt.Errorf("reading Whisper key: %w", err)
		}
		creds.GeminiAPIKeys = trimKeys([]string{gemini})
		creds.WhisperAPIKey = strings.TrimSpace(whisper)
	}
	if creds.IsEmpty() {
		return errors.New("no keys provided")
	}
	if err := validateKeys(creds); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	existing, err := store.Load()
	switch {
	case errors.Is(err, credentials.ErrNoCredentials):
	case err != nil:
		return fmt.Errorf("loading stored credentials: %w", err)
	default:
		creds = mergeCredentials(existing, creds, opts.appendKeys)
	}

	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintln(out, "Login successful!")
	for i, k := range creds.GeminiAPIKeys {
		fmt.Fprintf(out, "  Gemini key %d: %s\n", i+1, credentials.MaskCredential(k))
	}
	if creds.WhisperAPIKey != "" {
		fmt.Fprintf(out, "  Whisper key:  %s\n", credentials.MaskCredential(creds.WhisperAPIKey))
	}
	fmt.Fprintf(out, "  Key storage:  %s\n", store.KeyStorage())
	if path, err := credentials.CredentialsPath(); err == nil {
		fmt.Fprintf(out, "\nCredentials stored in: %s\n", path)
	}
	return nil
}

// mergeCredentials keeps stored keys that the login did not replace.
func mergeCredentials(stored, login *credentials.Credentials, appendKeys bool) *credentials.Credentials {
	out := *login
	switch {
	case len(login.GeminiAPIKeys) == 0:
		out.GeminiAPIKeys = stored.GeminiAPIKeys
	case appendKeys:
		seen := make(map[string]bool)
		out.GeminiAPIKeys = nil
		for _, k := range append(append([]string{}, stored.GeminiAPIKeys...), login.GeminiAPIKeys...) {
			if !seen[k] {
				seen[k] = true
				out.GeminiAPIKeys = append(out.GeminiAPIKeys, k)
			}
		}
	}
	if login.WhisperAPIKey == "" {
		out.WhisperAPIKey = stored.WhisperAPIKey
	}
	return &out
}

func validateKeys(creds *credentials.Credentials) error {
	for i, k := range creds.GeminiAPIKeys {
		if len(k) < minKeyLength {
			return fmt.Errorf("Gemini key %d is too short", i+1)
		}
	}
	if k := creds.WhisperAPIKey; k != "" && len(k) < minKeyLength {
		return errors.New("Whisper key is too short")
	}
	return nil
}

func trimKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// readSecret reads hidden input from the terminal, falling back to a plain
// line read when stdin is not a terminal.
func readSecret(prompt string, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && f == os.Stdin && term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCommand(deps *AuthDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored API keys",
		Long: `Remove the encrypted credential file.

Environment variables are not affected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store, err := deps.NewStore()
			if err != nil {
				return fmt.Errorf("initializing credential store: %w", err)
			}

			if !store.Exists() {
				fmt.Fprintln(out, "No stored credentials found.")
				return nil
			}
			if err := store.Delete(); err != nil {
				return fmt.Errorf("removing credentials: %w", err)
			}
			fmt.Fprintln(out, "Logged out successfully.")

			for _, env := range activeEnvKeys() {
				fmt.Fprintf(out, "\nNote: %s is still set. Unset it with: unset %s\n", env, env)
			}
			return nil
		},
	}
}

func newAuthStatusCommand(deps *AuthDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which API keys are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout(), deps)
		},
	}
}

func runAuthStatus(out io.Writer, deps *AuthDeps) error {
	store, err := deps.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	fmt.Fprintln(out, "Authentication Status")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	envKeys := activeEnvKeys()
	if len(envKeys) > 0 {
		fmt.Fprintln(out, "Environment Variables:")
		for _, env := range envKeys {
			fmt.Fprintf(out, "  %s: %s (active)\n", env, credentials.MaskCredential(os.Getenv(env)))
		}
		fmt.Fprintln(out)
	}

	creds, err := store.Load()
	switch {
	case errors.Is(err, credentials.ErrNoCredentials):
		fmt.Fprintln(out, "Stored Credentials: None")
		if len(envKeys) == 0 {
			fmt.Fprintln(out, "\nNot authenticated. Run 'focusflow auth login' to add API keys.")
		}
		return nil
	case err != nil:
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintln(out, "Stored Credentials:")
	for i, k := range creds.GeminiAPIKeys {
		fmt.Fprintf(out, "  Gemini key %d: %s\n", i+1, credentials.MaskCredential(k))
	}
	if creds.WhisperAPIKey != "" {
		fmt.Fprintf(out, "  Whisper key:  %s\n", credentials.MaskCredential(creds.WhisperAPIKey))
	}
	fmt.Fprintf(out, "  Key storage:  %s\n", store.KeyStorage())
	fmt.Fprintf(out, "  Last Updated: %s\n", creds.LastUpdated.Format(time.RFC3339))

	fmt.Fprintln(out)
	if len(envKeys) > 0 {
		fmt.Fprintln(out, "Active Credential Source: Environment variables override stored keys")
	} else {
		fmt.Fprintln(out, "Active Credential Source: Stored credentials")
	}
	return nil
}

func activeEnvKeys() []string {
	var set []string
	for _, env := range []string{credentials.EnvGeminiAPIKey, credentials.EnvGeminiAPIKeys, credentials.EnvWhisperAPIKey} {
		if os.Getenv(env) != "" {
			set = append(set, env)
		}
	}
	return set
}
