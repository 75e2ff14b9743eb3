package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/scrobblewatch/internal/errmsg"
	"github.com/llehouerou/scrobblewatch/internal/lastfm"
	"github.com/llehouerou/scrobblewatch/internal/state"
)

const authTimeout = 5 * time.Minute

// ErrNotLinked is returned by commands that need a linked Last.fm account.
var ErrNotLinked = errors.New("no Last.fm account linked, run 'scrobblewatch auth login'")

var errNoAPIKey = errors.New("lastfm.api_key and lastfm.api_secret are not configured")

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Last.fm account",
	Long:  `Commands for linking and unlinking the Last.fm account scrobbles go to.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Link a Last.fm account",
	Long: `Opens a browser to authorize scrobblewatch on Last.fm. A local server
receives the callback and the session is stored for later runs.`,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Unlink the Last.fm account",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the linked Last.fm account",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// newLastfmClient builds a client from the config and the stored session.
// The client is unauthenticated when no account is linked.
func newLastfmClient(store state.Interface) (*lastfm.Client, error) {
	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	sess, err := store.GetLastfmSession()
	if err != nil {
		return nil, errmsg.Error(errmsg.OpLastfmAuth, err)
	}
	if sess != nil && cfg.HasLastfmConfig() {
		client.SetSessionKey(sess.SessionKey)
	}
	return client, nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if !cfg.HasLastfmConfig() {
		return errmsg.Error(errmsg.OpLastfmAuth, errNoAPIKey)
	}

	store, err := state.Open()
	if err != nil {
		return errmsg.Error(errmsg.OpStateOpen, err)
	}
	defer store.Close()

	as, err := lastfm.StartAuthServer("")
	if err != nil {
		return errmsg.Error(errmsg.OpLastfmAuth, err)
	}
	defer as.Shutdown()

	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	authURL := client.GetCallbackAuthURL(as.CallbackURL())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Opening browser for Last.fm authorization...")
	if err := lastfm.OpenBrowser(authURL); err != nil {
		fmt.Fprintf(out, "Could not open a browser. Open this URL to continue:\n\n%s\n\n", authURL)
	}
	fmt.Fprintln(out, "Waiting for authorization...")

	token, err := as.WaitForToken(cmd.Context(), authTimeout)
	if err != nil {
		return errmsg.Error(errmsg.OpLastfmAuth, err)
	}
	username, sessionKey, err := client.GetSession(token)
	if err != nil {
		return errmsg.Error(errmsg.OpLastfmAuth, err)
	}
	if err := store.SaveLastfmSession(username, sessionKey); err != nil {
		return errmsg.Error(errmsg.OpLastfmAuth, err)
	}
	logger.Info("lastfm account linked", "username", username)
	fmt.Fprintf(out, "Linked Last.fm account %s.\n", username)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := state.Open()
	if err != nil {
		return errmsg.Error(errmsg.OpStateOpen, err)
	}
	defer store.Close()

	if err := store.DeleteLastfmSession(); err != nil {
		return errmsg.Error(errmsg.OpLastfmUnlink, err)
	}
	logger.Info("lastfm account unlinked")
	fmt.Fprintln(cmd.OutOrStdout(), "Last.fm account unlinked.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := state.Open()
	if err != nil {
		return errmsg.Error(errmsg.OpStateOpen, err)
	}
	defer store.Close()

	return writeAuthStatus(cmd.OutOrStdout(), store, cfg.HasLastfmConfig())
}

func writeAuthStatus(out io.Writer, store state.Interface, configured bool) error {
	sess, err := store.GetLastfmSession()
	if err != nil {
		return errmsg.Error(errmsg.OpLastfmAuth, err)
	}
	if !configured {
		fmt.Fprintln(out, "Last.fm API key not configured.")
	}
	if sess == nil {
		fmt.Fprintln(out, "Not linked.")
		return nil
	}
	fmt.Fprintf(out, "Linked as %s since %s.\n", sess.Username, sess.LinkedAt.Format(time.DateOnly))
	return nil
}
