package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Episode is one downtime stretch in a simulated production record.
type Episode struct {
	ReasonRef       string `json:"reason_ref,omitempty"`
	ReasonLabel     string `json:"reason_label,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ProductionEvent is the event half of a production record request.
type ProductionEvent struct {
	OccurredOn   string `json:"occurred_on"`
	Shift        string `json:"shift"`
	MachineRef   string `json:"machine_ref"`
	PartRef      string `json:"part_ref"`
	PlanQty      int    `json:"plan_qty"`
	ActualQty    int    `json:"actual_qty"`
	DefectQty    int    `json:"defect_qty"`
	UntestedQty  int    `json:"untested_qty"`
	OperatorName string `json:"operator_name,omitempty"`
	Problem4M    string `json:"problem_4m,omitempty"`
}

// ProductionRecord is the body of POST /api/production.
type ProductionRecord struct {
	Event    ProductionEvent `json:"event"`
	Episodes []Episode       `json:"episodes"`
}

// Ticket is the body of POST /api/tickets.
type Ticket struct {
	ReportedOn   string `json:"reported_on"`
	Shift        string `json:"shift"`
	Department   string `json:"department"`
	MachineLabel string `json:"machine_label"`
	Issue        string `json:"issue"`
}

// Machine is a simulated press with the part it is currently running.
type Machine struct {
	Code       string
	Department string
	Parts      []string
	// Reliability is the chance a shift runs without any downtime.
	Reliability float64
}

var machines = []Machine{
	{Code: "FM-01", Department: "Forming", Parts: []string{"P-1001", "P-1002"}, Reliability: 0.7},
	{Code: "FM-02", Department: "Forming", Parts: []string{"P-1001"}, Reliability: 0.6},
	{Code: "TP-01", Department: "Tapping", Parts: []string{"P-2001"}, Reliability: 0.8},
	{Code: "FI-01", Department: "Final", Parts: []string{"P-1002", "P-2001"}, Reliability: 0.75},
}

var downtimeReasons = []string{"D1", "D2", "D3", "Q1", "S1", "S2", "T2", "O1"}

var freeTextReasons = []string{"Power dip", "Waiting for forklift", "Mold change"}

var problem4M = []string{"Man", "Machine", "Material", "Method"}

var issues = []string{
	"Hydraulic leak at main cylinder",
	"Abnormal noise from gearbox",
	"Sensor not detecting parts",
	"Die misalignment",
}

var authToken string

func authorizedPost(url string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func shiftAt(t time.Time) string {
	if h := t.Hour(); h >= 8 && h < 20 {
		return "Day"
	}
	return "Night"
}

// randomRecord builds one shift's production record for m.
func randomRecord(rng *rand.Rand, m Machine, at time.Time) ProductionRecord {
	plan := 80 + rng.Intn(80)
	record := ProductionRecord{
		Event: ProductionEvent{
			OccurredOn:   at.Format(time.DateOnly),
			Shift:        shiftAt(at),
			MachineRef:   m.Code,
			PartRef:      m.Parts[rng.Intn(len(m.Parts))],
			PlanQty:      plan,
			OperatorName: fmt.Sprintf("operator-%d", 1+rng.Intn(12)),
		},
		Episodes: []Episode{},
	}

	if rng.Float64() >= m.Reliability {
		for n := 1 + rng.Intn(3); n > 0; n-- {
			ep := Episode{DurationMinutes: 5 + rng.Intn(40)}
			if rng.Float64() < 0.8 {
				ep.ReasonRef = downtimeReasons[rng.Intn(len(downtimeReasons))]
			} else {
				ep.ReasonLabel = freeTextReasons[rng.Intn(len(freeTextReasons))]
			}
			record.Episodes = append(record.Episodes, ep)
		}
		record.Event.Problem4M = problem4M[rng.Intn(len(problem4M))]
	}

	lost := 0
	for _, ep := range record.Episodes {
		lost += ep.DurationMinutes
	}
	actual := plan - lost/2 - rng.Intn(10)
	if actual < 0 {
		actual = 0
	}
	record.Event.ActualQty = actual
	record.Event.DefectQty = rng.Intn(1 + actual/20)
	record.Event.UntestedQty = rng.Intn(3)
	return record
}

// maybeTicket raises a repair request after a long stop.
func maybeTicket(rng *rand.Rand, m Machine, record ProductionRecord) (Ticket, bool) {
	lost := 0
	for _, ep := range record.Episodes {
		lost += ep.DurationMinutes
	}
	if lost < 45 && rng.Float64() > 0.05 {
		return Ticket{}, false
	}
	return Ticket{
		ReportedOn:   record.Event.OccurredOn,
		Shift:        record.Event.Shift,
		Department:   m.Department,
		MachineLabel: m.Code,
		Issue:        issues[rng.Intn(len(issues))],
	}, true
}

func post(apiURL, path string, body interface{}, fields log.Fields) bool {
	resp, err := authorizedPost(apiURL+path, body)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Request failed")
		return false
	}
	defer resp.Body.Close()

	entry := log.WithFields(fields).WithField("status", resp.Status)
	if resp.StatusCode != http.StatusCreated {
		entry.Warn("Request rejected")
		return false
	}
	entry.Info("Request accepted")
	return true
}

func simulateShift(apiURL string, rng *rand.Rand, at time.Time) (records, tickets int) {
	for _, m := range machines {
		record := randomRecord(rng, m, at)
		fields := log.Fields{
			"machine":  m.Code,
			"part":     record.Event.PartRef,
			"actual":   record.Event.ActualQty,
			"episodes": len(record.Episodes),
		}
		if post(apiURL, "/production", record, fields) {
			records++
		}
		if ticket, ok := maybeTicket(rng, m, record); ok {
			if post(apiURL, "/tickets", ticket, log.Fields{"machine": m.Code, "issue": ticket.Issue}) {
				tickets++
			}
		}
	}
	return records, tickets
}

func parseMachines(v string) []Machine {
	if v == "" {
		return machines
	}
	wanted := map[string]bool{}
	for _, code := range strings.Split(v, ",") {
		wanted[strings.TrimSpace(code)] = true
	}
	var selected []Machine
	for _, m := range machines {
		if wanted[m.Code] {
			selected = append(selected, m)
		}
	}
	return selected
}

func main() {
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	machines = parseMachines(os.Getenv("SIM_MACHINES"))
	if len(machines) == 0 {
		log.Error("SIM_MACHINES matched no known machine. Exiting.")
		return
	}

	log.WithFields(log.Fields{
		"machines": len(machines),
		"api_url":  apiURL,
		"interval": interval,
	}).Info("Starting shop-floor simulation")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for now := range tick.C {
		records, tickets := simulateShift(apiURL, rng, now)
		log.WithFields(log.Fields{"records": records, "tickets": tickets}).Info("Shift simulated")
	}
}
