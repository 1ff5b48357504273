// Package twofasdk is the Go client for the Sentinel two-factor service.
//
// It holds the JSON types shared by the server and its callers, the typed
// APIError every failure decodes to, and a small client. An SDKClient covers
// the unauthenticated probes; a Session adds a bearer token and exposes
// every /v1 route.
//
//	client := twofasdk.NewSDKClient("https://sentinel.example.com")
//	sess := client.NewSession(accessToken)
//
//	setup, err := sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: "+61400000000"})
//	if err != nil {
//		return err
//	}
//	state, err := sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{SessionID: setup.SessionID, Code: code})
//	var apiErr *twofasdk.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == twofasdk.ErrorCodeInvalidCode {
//		// apiErr.AttemptsRemaining tries left
//	}
package twofasdk
