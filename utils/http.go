// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the sync workers polling external services.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
