// Command frameipc-client is an operator-facing debug tool: it polls a
// running frameipc-service's HTTP surface and prints the introspection
// tree and liveness status.
//
// A genuine second data-plane consumer process would open the service's
// named shared-memory segments directly and read telemetry rings out of
// them without talking to the service at all — that is how
// MiddlewareComms works in-process (see engine/comms/middleware.go).
// This binary does not attempt that across a real process boundary:
// Go's memory safety rules make it unsafe to place the rings' live,
// pointer-containing structures directly into mmap-ed bytes without a
// bespoke binary serialization layer, so CloneIntrospection's semaphore
// and shared lock only ever arbitrate access within a single process
// (documented in DESIGN.md). frameipc-client is therefore scoped to the
// control-plane surface a real operator tool would use: health and
// introspection, fetched over HTTP rather than shared memory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lattice-gfx/frameipc/engine/introspection"
)

func main() {
	var (
		serviceAddr string
		timeout     time.Duration
		watch       time.Duration
	)
	flag.StringVar(&serviceAddr, "service", "http://127.0.0.1:9090", "frameipc-service base URL")
	flag.DurationVar(&timeout, "timeout", 2*time.Second, "per-request timeout")
	flag.DurationVar(&watch, "watch", 0, "if nonzero, repeat at this interval instead of exiting after one fetch")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	fetch := func() error {
		healthy, reason, err := fetchHealth(client, serviceAddr)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		if healthy {
			fmt.Fprintln(os.Stdout, "health: ok")
		} else {
			fmt.Fprintf(os.Stdout, "health: unhealthy (%s)\n", reason)
		}

		root, err := fetchIntrospection(client, serviceAddr)
		if err != nil {
			return fmt.Errorf("introspection: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	}

	if watch <= 0 {
		if err := fetch(); err != nil {
			fmt.Fprintf(os.Stderr, "frameipc-client: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(watch)
	defer ticker.Stop()
	for {
		if err := fetch(); err != nil {
			fmt.Fprintf(os.Stderr, "frameipc-client: %v\n", err)
		}
		<-ticker.C
	}
}

func fetchHealth(client *http.Client, baseAddr string) (healthy bool, reason string, err error) {
	resp, err := client.Get(baseAddr + "/healthz")
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return false, string(body), nil
	}
	return true, "", nil
}

func fetchIntrospection(client *http.Client, baseAddr string) (introspection.Root, error) {
	var root introspection.Root
	resp, err := client.Get(baseAddr + "/debug/introspection")
	if err != nil {
		return root, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return root, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return root, err
	}
	return root, nil
}
