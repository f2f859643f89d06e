package probe

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// HTTPProber treats any HTTP answer below 500 as the host being reachable.
// Bare hosts are probed as http://host/.
type HTTPProber struct {
	Client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &HTTPProber{
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPProber) Probe(ctx context.Context, host string) domain.Outcome {
	target := host
	if !strings.Contains(target, "://") {
		target = "http://" + target + "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return domain.Failure(err.Error())
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return domain.Failure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.Failure(resp.Status)
	}
	return domain.Success(latency)
}
