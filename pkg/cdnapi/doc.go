// Package cdnapi is a small client for the CDN/DNS provider REST API used by
// the managed certificate path.
//
// It covers the four calls the platform needs: listing zones, adding a DNS
// record, switching a zone's SSL mode and reading certificate status.
// Requests carry a bearer token through golang.org/x/oauth2. Responses use
// the provider envelope:
//
//	{"success": false, "errors": [{"code": 1003, "message": "Invalid zone"}], "result": null}
//
// Any unsuccessful envelope or non-2xx status is returned as *APIError.
//
//	client, err := cdnapi.New(cdnapi.Config{APIToken: os.Getenv("CDN_API_TOKEN")})
//	if err != nil {
//		return err
//	}
//	zone, err := client.FindZone(ctx, "example.com")
package cdnapi
