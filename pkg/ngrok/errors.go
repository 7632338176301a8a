package ngrok

import "errors"

var ErrNoTunnels = errors.New("ngrok has no active tunnels")
