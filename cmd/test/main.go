package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type TestClient struct {
	baseURL   string
	client    *http.Client
	sessionID string
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the server")
	testType := flag.String("test", "all", "Test type: all, health, agent-card, archetypes, smile, daily, worldtour, agent, sales, beta, custom")
	archetype := flag.String("archetype", "professor", "Archetype for the custom test")
	language := flag.String("language", "en", "Language for the custom test")
	topic := flag.String("topic", "", "Topic for the custom test")
	flag.Parse()

	client := NewTestClient(*baseURL)

	printHeader("UMAJA - Test Suite")
	fmt.Printf("%sBase URL: %s%s\n\n", colorCyan, *baseURL, colorReset)

	var ok bool
	switch *testType {
	case "all":
		client.runAllTests()
		return
	case "health":
		ok = client.testHealthCheck()
	case "agent-card":
		ok = client.testAgentCard()
	case "archetypes":
		ok = client.testArchetypes()
	case "smile":
		ok = client.testSmile()
	case "daily":
		ok = client.testDailySmile()
	case "worldtour":
		ok = client.testWorldTour()
	case "agent":
		ok = client.testAgentTask()
	case "sales":
		ok = client.testSales()
	case "beta":
		ok = client.testBetaTracking()
	case "custom":
		if *topic == "" {
			printError("Topic is required for custom test. Use -topic flag")
			os.Exit(1)
		}
		ok = client.testCustomSmile(*archetype, *language, *topic)
	default:
		printError(fmt.Sprintf("Unknown test type: %s", *testType))
		fmt.Println("\nAvailable tests: all, health, agent-card, archetypes, smile, daily, worldtour, agent, sales, beta, custom")
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func (tc *TestClient) runAllTests() {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Agent Card", tc.testAgentCard},
		{"Archetypes", tc.testArchetypes},
		{"Smile", tc.testSmile},
		{"Daily Smile", tc.testDailySmile},
		{"World Tour", tc.testWorldTour},
		{"Agent Task", tc.testAgentTask},
		{"Sales", tc.testSales},
		{"Beta Tracking", tc.testBetaTracking},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	printHeader("Test Summary")
	fmt.Printf("%sPassed: %d%s\n", colorGreen, passed, colorReset)
	fmt.Printf("%sFailed: %d%s\n", colorRed, failed, colorReset)
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
}

// send performs a request and returns the status and body.
func (tc *TestClient) send(method, path string, payload interface{}) (int, []byte, error) {
	target := tc.baseURL + path
	fmt.Printf("%s %s\n", method, target)

	var body io.Reader
	if payload != nil {
		data, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Printf("%sRequest:%s\n%s\n\n", colorYellow, colorReset, string(data))
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}

// do sends a request and returns the body when the status matches want.
func (tc *TestClient) do(method, path string, payload interface{}, want int) ([]byte, bool) {
	status, body, err := tc.send(method, path, payload)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return nil, false
	}
	if status != want {
		printError(fmt.Sprintf("Expected status %d, got %d", want, status))
		fmt.Printf("Response: %s\n", string(body))
		return nil, false
	}
	return body, true
}

func (tc *TestClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	body, ok := tc.do(http.MethodGet, "/health", nil, http.StatusOK)
	if !ok {
		return false
	}

	if string(body) != "OK" {
		printError(fmt.Sprintf("Expected body 'OK', got '%s'", string(body)))
		return false
	}

	printSuccess("Health check passed")
	return true
}

func (tc *TestClient) testAgentCard() bool {
	printTestHeader("Testing Agent Card Endpoint")

	body, ok := tc.do(http.MethodGet, "/.well-known/agent.json", nil, http.StatusOK)
	if !ok {
		return false
	}

	var agentCard map[string]interface{}
	if err := json.Unmarshal(body, &agentCard); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}

	requiredFields := []string{"name", "description", "url", "version", "capabilities", "skills"}
	for _, field := range requiredFields {
		if _, ok := agentCard[field]; !ok {
			printError(fmt.Sprintf("Missing required field: %s", field))
			return false
		}
	}

	printSuccess("Agent card is valid")
	printJSON(body)
	return true
}

func (tc *TestClient) testArchetypes() bool {
	printTestHeader("Testing Catalog Endpoints")

	for _, path := range []string{"/api/archetypes", "/api/topics", "/api/worldtour/cities"} {
		body, ok := tc.do(http.MethodGet, path, nil, http.StatusOK)
		if !ok {
			return false
		}
		var out map[string]interface{}
		if err := json.Unmarshal(body, &out); err != nil {
			printError(fmt.Sprintf("Invalid JSON response: %v", err))
			return false
		}
	}

	printSuccess("Catalogs are available")
	return true
}

func (tc *TestClient) testSmile() bool {
	return tc.testCustomSmile("enthusiast", "en", "coffee")
}

func (tc *TestClient) testCustomSmile(archetype, language, topic string) bool {
	printTestHeader("Testing Smile Generation")
	fmt.Printf("%sArchetype:%s %s  %sLanguage:%s %s  %sTopic:%s %s\n\n",
		colorCyan, colorReset, archetype, colorCyan, colorReset, language, colorCyan, colorReset, topic)

	body, ok := tc.do(http.MethodPost, "/api/smile", map[string]interface{}{
		"archetype":  archetype,
		"language":   language,
		"topic":      topic,
		"fallback":   true,
		"session_id": tc.sessionID,
	}, http.StatusOK)
	if !ok {
		return false
	}
	return tc.printSmile(body, "Smile generated")
}

func (tc *TestClient) testDailySmile() bool {
	printTestHeader("Testing Daily Smile")

	q := url.Values{"archetype": {"worrier"}, "language": {"de"}}
	body, ok := tc.do(http.MethodGet, "/api/smile/daily?"+q.Encode(), nil, http.StatusOK)
	if !ok {
		return false
	}
	return tc.printSmile(body, "Daily smile generated")
}

func (tc *TestClient) testWorldTour() bool {
	printTestHeader("Testing World Tour")

	q := url.Values{"archetype": {"professor"}, "language": {"es"}}
	body, ok := tc.do(http.MethodGet, "/api/worldtour/tokyo?"+q.Encode(), nil, http.StatusOK)
	if !ok {
		return false
	}
	return tc.printSmile(body, "World tour stop generated")
}

func (tc *TestClient) printSmile(body []byte, success string) bool {
	var response struct {
		Smile struct {
			Title    string `json:"title"`
			Text     string `json:"text"`
			Fallback bool   `json:"fallback"`
		} `json:"smile"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if response.Smile.Text == "" {
		printError("Empty smile text")
		return false
	}
	tc.sessionID = response.SessionID

	printSuccess(success)
	fmt.Printf("\n%s%s%s\n", colorGreen, response.Smile.Title, colorReset)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(response.Smile.Text)
	fmt.Println(strings.Repeat("=", 80))
	if response.Smile.Fallback {
		fmt.Printf("%s(rendered in the default language)%s\n", colorYellow, colorReset)
	}
	return true
}

func (tc *TestClient) testAgentTask() bool {
	printTestHeader("Testing A2A Smile Task")

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("test-%d", time.Now().Unix()),
		"method":  "message/send",
		"params": map[string]interface{}{
			"message": map[string]interface{}{
				"kind": "message",
				"role": "user",
				"parts": []map[string]interface{}{
					{
						"kind": "text",
						"text": "archetype: worrier, language: en, topic: mondays",
					},
				},
			},
			"configuration": map[string]interface{}{
				"blocking":            true,
				"acceptedOutputModes": []string{"text"},
			},
		},
	}

	body, ok := tc.do(http.MethodPost, "/a2a/smile", request, http.StatusOK)
	if !ok {
		return false
	}

	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}

	if errObj, ok := response["error"]; ok && errObj != nil {
		printError("Request returned an error")
		errJSON, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Println(string(errJSON))
		return false
	}

	result, ok := response["result"].(map[string]interface{})
	if !ok {
		printError("Invalid result format")
		return false
	}

	status, ok := result["status"].(map[string]interface{})
	if !ok {
		printError("Invalid status format")
		return false
	}

	state, _ := status["state"].(string)
	if state != "completed" {
		printError(fmt.Sprintf("Expected state 'completed', got '%s'", state))
		return false
	}

	printSuccess("Agent task completed successfully")

	if artifacts, ok := result["artifacts"].([]interface{}); ok && len(artifacts) > 0 {
		fmt.Printf("\n%sArtifacts:%s\n", colorPurple, colorReset)
		artifactsJSON, _ := json.MarshalIndent(artifacts, "", "  ")
		fmt.Println(string(artifactsJSON))
	}
	return true
}

// testSales accepts either gate state: coming soon while disabled, or a
// pending sale with a checkout link when enabled.
func (tc *TestClient) testSales() bool {
	printTestHeader("Testing Sales Gate")

	status, body, err := tc.send(http.MethodPost, "/api/sales", map[string]interface{}{
		"contact":   "smoke-test@example.com",
		"archetype": "enthusiast",
		"language":  "en",
		"topic":     "coffee",
	})
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}

	var response struct {
		Status string `json:"status"`
		Sale   struct {
			ID          string `json:"id"`
			Status      string `json:"status"`
			CheckoutURL string `json:"checkout_url"`
		} `json:"sale"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}

	switch status {
	case http.StatusOK:
		if response.Status != "coming_soon" {
			printError(fmt.Sprintf("Expected status 'coming_soon', got '%s'", response.Status))
			return false
		}
		printSuccess("Sales are gated: coming soon")
		printJSON(body)
		return true

	case http.StatusCreated:
		if response.Sale.Status != "pending" || response.Sale.CheckoutURL == "" {
			printError("Expected a pending sale with a checkout url")
			return false
		}
		if _, ok := tc.do(http.MethodGet, "/api/sales/"+response.Sale.ID, nil, http.StatusOK); !ok {
			return false
		}
		printSuccess(fmt.Sprintf("Sale %s is pending", response.Sale.ID))
		fmt.Printf("%sApprove at:%s %s\n", colorCyan, colorReset, response.Sale.CheckoutURL)
		return true

	default:
		printError(fmt.Sprintf("Expected status 200 or 201, got %d", status))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}
}

func (tc *TestClient) testBetaTracking() bool {
	printTestHeader("Testing Beta Tracking")

	body, ok := tc.do(http.MethodPost, "/api/beta/track", map[string]interface{}{
		"session_id": tc.sessionID,
		"event_type": "feedback.smile_rated",
		"payload":    map[string]interface{}{"rating": 5, "archetype": "enthusiast"},
	}, http.StatusAccepted)
	if !ok {
		return false
	}

	var tracked map[string]interface{}
	if err := json.Unmarshal(body, &tracked); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if tracked["recorded"] != true {
		printError("Event was not recorded")
		return false
	}

	body, ok = tc.do(http.MethodGet, "/api/beta/insights", nil, http.StatusOK)
	if !ok {
		return false
	}

	printSuccess("Event recorded and insights available")
	printJSON(body)
	return true
}

func printHeader(text string) {
	fmt.Printf("\n%s%s%s\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
	fmt.Printf("%s= %s =%s\n", colorBlue, text, colorReset)
	fmt.Printf("%s%s%s\n\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
}

func printTestHeader(text string) {
	fmt.Printf("%s[TEST] %s%s\n", colorCyan, text, colorReset)
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, text, colorReset)
}

func printError(text string) {
	fmt.Printf("%s✗ %s%s\n", colorRed, text, colorReset)
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		fmt.Printf("\n%sResponse:%s\n%s\n", colorYellow, colorReset, prettyJSON.String())
	}
}
