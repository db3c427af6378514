package broadcast

import "errors"

var ErrPlayerOffline = errors.New("player offline")
