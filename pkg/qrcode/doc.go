// Package qrcode renders QR codes as PNG bytes or inline data URIs using
// github.com/skip2/go-qrcode. The billing payment page uses DataURI to let
// owners scan the checkout link with a phone.
package qrcode
