package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/pingwatch/internal/display"
	"github.com/hamed0406/pingwatch/internal/domain"
)

func main() {
	api := strings.TrimRight(os.Getenv("API_BASE"), "/")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("API_KEY")
	client := &http.Client{Timeout: 5 * time.Second}

	var stats struct {
		Target string `json:"target"`
		domain.Stats
	}
	if err := getJSON(client, api+"/api/stats", key, &stats); err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}

	path := "/api/outages"
	if len(os.Args) > 1 && os.Args[1] == "history" {
		path = "/api/outages/history"
	}
	var outages []domain.Outage
	if err := getJSON(client, api+path, key, &outages); err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}

	fmt.Println("Target:", stats.Target)
	fmt.Println(display.StatusLine(stats.Stats))
	fmt.Println()
	fmt.Println("Recent Outages:")
	if len(outages) == 0 {
		fmt.Println("  none")
	}
	for _, o := range outages {
		fmt.Println("  " + display.OutageLine(o))
	}
}

func getJSON(c *http.Client, url, key string, dst any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
