package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// changesPayload mirrors the subset of the /api/changes response that both deployments
// must agree on. asOf is ignored since the two runs happen at different instants.
type changesPayload struct {
	Count   int                    `json:"count"`
	Grouped map[string][]changeRow `json:"grouped"`
	Filters struct {
		EventDaysBack int    `json:"eventDaysBack"`
		PrepFrom      string `json:"prepFrom"`
		PrepTo        string `json:"prepTo"`
	} `json:"filters"`
}

type changeRow struct {
	OrderID int64   `json:"orderId"`
	Item    string  `json:"item"`
	Verb    *string `json:"verb"`
}

func (r changeRow) key() string {
	verb := "-"
	if r.Verb != nil {
		verb = *r.Verb
	}
	return fmt.Sprintf("%d|%s|%s", r.OrderID, verb, r.Item)
}

type fetchResult struct {
	Status   int
	Payload  *changesPayload
	Duration time.Duration
}

func main() {
	var (
		goBase     string
		legacyBase string
		path       string
		timeout    time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:5050", "Legacy dashboard base URL")
	flag.StringVar(&path, "path", "/api/changes", "Report path on both deployments")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	goRes, err := fetchChanges(client, goBase, path)
	if err != nil {
		log.Fatalf("go request failed: %v", err)
	}
	legacyRes, err := fetchChanges(client, legacyBase, path)
	if err != nil {
		log.Fatalf("legacy request failed: %v", err)
	}

	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	fmt.Printf("  Go Status: %d (%s)\n", goRes.Status, goRes.Duration)
	fmt.Printf("  Legacy Status: %d (%s)\n", legacyRes.Status, legacyRes.Duration)

	diffs := compareResults(goRes, legacyRes)
	for _, d := range diffs {
		fmt.Printf("  DIFF %s\n", d)
	}
	fmt.Printf("Diffs: %d\n", len(diffs))
	if len(diffs) > 0 {
		os.Exit(1)
	}
}

func fetchChanges(client *http.Client, base, path string) (fetchResult, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	start := time.Now()
	resp, err := client.Get(strings.TrimRight(base, "/") + path)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()

	res := fetchResult{Status: resp.StatusCode}
	body, err := io.ReadAll(resp.Body)
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return res, nil
	}
	var payload changesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return res, fmt.Errorf("decode body: %w", err)
	}
	res.Payload = &payload
	return res, nil
}

// compareResults lists every disagreement between two report responses. Row order
// inside a show is not compared.
func compareResults(a, b fetchResult) []string {
	var diffs []string
	if a.Status != b.Status {
		diffs = append(diffs, fmt.Sprintf("status %d != %d", a.Status, b.Status))
	}
	if a.Payload == nil || b.Payload == nil {
		return diffs
	}
	pa, pb := a.Payload, b.Payload
	if pa.Count != pb.Count {
		diffs = append(diffs, fmt.Sprintf("count %d != %d", pa.Count, pb.Count))
	}
	if pa.Filters != pb.Filters {
		diffs = append(diffs, fmt.Sprintf("filters %+v != %+v", pa.Filters, pb.Filters))
	}

	shows := make(map[string]struct{}, len(pa.Grouped)+len(pb.Grouped))
	for show := range pa.Grouped {
		shows[show] = struct{}{}
	}
	for show := range pb.Grouped {
		shows[show] = struct{}{}
	}
	names := make([]string, 0, len(shows))
	for show := range shows {
		names = append(names, show)
	}
	sort.Strings(names)

	for _, show := range names {
		rowsA, okA := pa.Grouped[show]
		rowsB, okB := pb.Grouped[show]
		switch {
		case !okA:
			diffs = append(diffs, fmt.Sprintf("show %q only in second response", show))
			continue
		case !okB:
			diffs = append(diffs, fmt.Sprintf("show %q only in first response", show))
			continue
		}
		diffs = append(diffs, diffRows(show, rowsA, rowsB)...)
	}
	return diffs
}

func diffRows(show string, a, b []changeRow) []string {
	counts := make(map[string]int)
	for _, r := range a {
		counts[r.key()]++
	}
	for _, r := range b {
		counts[r.key()]--
	}
	keys := make([]string, 0, len(counts))
	for k, n := range counts {
		if n != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	diffs := make([]string, 0, len(keys))
	for _, k := range keys {
		diffs = append(diffs, fmt.Sprintf("show %q row %s off by %+d", show, k, counts[k]))
	}
	return diffs
}
