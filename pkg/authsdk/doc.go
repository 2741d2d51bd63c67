/*
Package authsdk is a Go client for the splitsub account API.

An SDKClient talks to the public endpoints and creates Sessions:

	client := authsdk.NewSDKClient("https://api.example.com")

	session, err := client.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.CodeLoginRateLimited {
			time.Sleep(time.Duration(apiErr.RetryAfter) * time.Second)
		}
		return err
	}

	profile, err := session.Profile(ctx)

# Automatic Token Refresh

Every Session method first checks the access token expiry (with a 30
second buffer) and exchanges the refresh token for a new pair when needed.

# Errors

Non-2xx responses are returned as *APIError carrying the status, the
stable error code, the message and, when the server disclosed them, the
details and Retry-After seconds.

# Thread Safety

Sessions are safe for concurrent use. Token state is guarded by a
read/write lock.
*/
package authsdk
