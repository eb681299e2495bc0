// Command feedtail logs in and prints the live notification stream.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

const sessionCookie = "warbler_session"

func main() {
	base := flag.String("base", "http://localhost:5000", "API base URL")
	username := flag.String("username", "", "Account to log in as")
	password := flag.String("password", "", "Account password")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("usage: feedtail -username <name> -password <password> [-base url]")
	}

	cookie, err := login(*base, *username, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	wsURL, err := streamURL(*base)
	if err != nil {
		log.Fatal(err)
	}
	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL, err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("connected to %s as %s", wsURL, *username)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&evt); err != nil {
				log.Printf("stream closed: %v", err)
				return
			}
			fmt.Printf("%s %-10s %s\n", time.Now().Format(time.TimeOnly), evt.Type, evt.Payload)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-done:
	case <-sig:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}
}

func login(base, username, password string) (*http.Cookie, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(strings.TrimRight(base, "/")+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, fmt.Errorf("%s: %s", resp.Status, e.Error)
	}
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no %s cookie in login response", sessionCookie)
}

// streamURL maps http(s)://host to ws(s)://host/api/ws.
func streamURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	return u.String(), nil
}
