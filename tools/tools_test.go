package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGMadMax/mcp-rbac/common/httpx"
	"github.com/DGMadMax/mcp-rbac/rbac"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) GetProviderType() string { return "stub" }

func TestIsSafeQuery(t *testing.T) {
	cases := []struct {
		sql  string
		safe bool
	}{
		{"SELECT * FROM employees", true},
		{"select full_name from employees where department = 'hr'", true},
		{"  SELECT count(*) FROM employees;  ", true},
		{"DELETE FROM employees", false},
		{"DROP TABLE employees", false},
		{"SELECT 1; DROP TABLE employees", false},
		{"PRAGMA table_info(employees)", false},
		{"UPDATE employees SET salary = 0", false},
		{"WITH x AS (SELECT 1) SELECT * FROM x", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.safe, isSafeQuery(tc.sql), "sql: %q", tc.sql)
	}
}

func TestStructuredToolDeniesNonHR(t *testing.T) {
	tool := &StructuredTool{Provider: &stubLLM{response: "SELECT 1"}}
	res, err := tool.Call(context.Background(), []string{"how many employees are there"}, rbac.NewContext("Engineering", "engineering"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "restricted")
	assert.Empty(t, res.Citations)
}

func TestStructuredToolAnswersForHR(t *testing.T) {
	tool, err := NewStructuredTool("file:structured_test?mode=memory&cache=shared", &stubLLM{
		response: "```sql\nSELECT full_name, department FROM employees ORDER BY full_name\n```",
	})
	require.NoError(t, err)
	require.NoError(t, tool.DB.Create(&Employee{EmployeeID: "E001", FullName: "Ada Lovelace", Department: "engineering"}).Error)
	require.NoError(t, tool.DB.Create(&Employee{EmployeeID: "E002", FullName: "Grace Hopper", Department: "engineering"}).Error)

	res, err := tool.Call(context.Background(), []string{"list all employees"}, rbac.NewContext("HR", "hr"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Ada Lovelace")
	assert.Contains(t, res.Text, "Grace Hopper")
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "employees", res.Citations[0].Locator)
}

func TestStructuredToolBlocksUnsafeGeneratedSQL(t *testing.T) {
	tool, err := NewStructuredTool("file:structured_unsafe?mode=memory&cache=shared", &stubLLM{
		response: "DELETE FROM employees",
	})
	require.NoError(t, err)
	_, err = tool.Call(context.Background(), []string{"wipe the table"}, rbac.NewContext("C-Level", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SELECT")
}

func TestExtractCity(t *testing.T) {
	cases := []struct {
		query string
		city  string
	}{
		{"what is the weather in Bangalore?", "Bangalore"},
		{"weather forecast for New York today", "New York"},
		{"how windy is it in San Francisco right now", "San Francisco"},
		{"what is the weather like", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.city, extractCity(tc.query), "query: %q", tc.query)
	}
}

func TestWeatherToolFormatsReport(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bangalore", r.URL.Query().Get("name"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"name": "Bengaluru", "latitude": 12.97, "longitude": 77.59},
			},
		})
	}))
	defer geo.Close()
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"current_weather": map[string]interface{}{"temperature": 27.5, "windspeed": 11.0, "weathercode": 2},
		})
	}))
	defer forecast.Close()

	tool := &WeatherTool{
		GeocodeEndpoint:  geo.URL,
		ForecastEndpoint: forecast.URL,
		Client:           httpx.NewFromConfig(nil),
	}
	res, err := tool.Call(context.Background(), []string{"what is the weather in Bangalore?"}, rbac.NewContext("Employee", ""))
	require.NoError(t, err)
	assert.Equal(t, "Weather in Bengaluru: 27.5°C, Wind: 11.0 km/h", res.Text)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "Bengaluru", res.Citations[0].Locator)
}

func TestWeatherToolWithoutCity(t *testing.T) {
	tool := &WeatherTool{}
	res, err := tool.Call(context.Background(), []string{"is it raining"}, rbac.NewContext("Employee", ""))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "mention a city")
	assert.Empty(t, res.Citations)
}

func TestWebToolDuckDuckGo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"AbstractText":   "Go is a statically typed language.",
			"AbstractSource": "Wikipedia",
			"AbstractURL":    "https://en.wikipedia.org/wiki/Go",
			"RelatedTopics": []map[string]interface{}{
				{"Text": "Go (game)", "FirstURL": "https://example.com/go-game"},
			},
		})
	}))
	defer srv.Close()

	tool := &WebTool{Endpoint: srv.URL, TopK: 3, Client: httpx.NewFromConfig(nil)}
	res, err := tool.Call(context.Background(), []string{"golang"}, rbac.NewContext("Marketing", "marketing"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "statically typed")
	require.Len(t, res.Citations, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go", res.Citations[0].Locator)
}

func TestWebToolNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer srv.Close()

	tool := &WebTool{Endpoint: srv.URL, Client: httpx.NewFromConfig(nil)}
	res, err := tool.Call(context.Background(), []string{"obscure query"}, rbac.NewContext("Employee", ""))
	require.NoError(t, err)
	assert.Equal(t, "No web results were found.", res.Text)
}
