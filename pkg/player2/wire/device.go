// ABOUTME: Request and response bodies for the device authorization endpoints
// ABOUTME: Covers device code issue, token polling, and the local companion-app login

package wire

// DeviceAuthRequest starts a device flow.
type DeviceAuthRequest struct {
	ClientID string `json:"client_id"`
}

// DeviceAuthResponse is returned by /login/device/new. Interval and ExpiresIn
// are seconds.
type DeviceAuthResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code,omitempty"`
	VerificationURI         string `json:"verification_uri,omitempty"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	Interval                int    `json:"interval"`
	ExpiresIn               int    `json:"expires_in"`
}

// TokenRequest polls /login/device/token.
type TokenRequest struct {
	ClientID   string `json:"client_id"`
	DeviceCode string `json:"device_code"`
}

// TokenResponse carries the issued API key. The local companion app answers
// with the same shape.
type TokenResponse struct {
	P2Key string `json:"p2_key"`
}
