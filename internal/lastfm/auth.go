package lastfm

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"
)

const (
	// AuthCallbackPort is the port used for the local callback server.
	AuthCallbackPort = 9847

	authPageURL = "https://www.last.fm/api/auth/"
)

// AuthURL returns the page where the user grants access. The service
// redirects to callback with a token query parameter once access is granted.
func AuthURL(apiKey, callback string) string {
	q := url.Values{}
	q.Set("api_key", apiKey)
	if callback != "" {
		q.Set("cb", callback)
	}
	return authPageURL + "?" + q.Encode()
}

// AuthServer receives the redirect carrying the authorized token.
type AuthServer struct {
	server    *http.Server
	listener  net.Listener
	tokenChan chan string
	done      chan struct{}
}

// StartAuthServer listens on addr (":0" picks a free port) and serves /callback.
func StartAuthServer(addr string) (*AuthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	as := &AuthServer{
		listener:  listener,
		tokenChan: make(chan string, 1),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", as.handleCallback)
	as.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = as.server.Serve(listener)
		close(as.done)
	}()

	return as, nil
}

func (as *AuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	heading, text := "Authorization Successful!", "You can close this window. Scrobbling starts right away."
	if token == "" {
		heading, text = "Authorization Failed", "No token received. Please try again."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>nowscrobble - Last.fm</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(heading), html.EscapeString(text))

	if token == "" {
		return
	}
	select {
	case as.tokenChan <- token:
	default:
	}
}

// CallbackURL returns the URL to pass as cb to AuthURL.
func (as *AuthServer) CallbackURL() string {
	port := as.listener.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://localhost:%d/callback", port)
}

// TokenChan returns the channel that receives the first token.
func (as *AuthServer) TokenChan() <-chan string {
	return as.tokenChan
}

// Shutdown stops the server.
func (as *AuthServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = as.server.Shutdown(ctx)
	<-as.done
}

// OpenBrowser opens the given URL in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
