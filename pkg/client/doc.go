/*
Package client provides the Go SDKs for talking to a vault: Client for
callers relaying requests, AdminClient for operators managing keys.

# Relay Client

Client mirrors the in-contract caller library. It holds the shared HMAC
secret and an alias, never a credential:

	c := client.New("http://localhost:8080", hmacSecret,
		client.WithCallerID("my-service"))
	resp, err := c.Get(ctx, "weather", "/data/2.5/weather?q=Tokyo", nil)

Each call generates a fresh nonce, stamps the current time, signs the
canonical payload, and submits POST /proxy with the signature in the
Authorization header. Non-200 answers surface as *client.Error carrying
the vault's status and error string.

# Admin Client

AdminClient wraps the bearer-protected endpoints for the CLI and other
tooling:

	a := client.NewAdmin("http://localhost:8080", adminToken)
	meta, err := a.Register(ctx, client.RegisterRequest{
		Alias:   "weather",
		APIKey:  "...",
		BaseURL: "https://api.openweathermap.org",
	})

Register, List, Rotate, Remove, Audit, and Health map one to one onto the
HTTP API; responses are the same metadata projections the server returns,
which never include credential material.
*/
package client
