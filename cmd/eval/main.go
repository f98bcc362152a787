// ABOUTME: Command-line golden eval runner for the query API
// ABOUTME: Posts a test suite to a running server and outputs JSON results

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clearpath-io/support-rag/internal/eval"
	"github.com/joho/godotenv"
)

func main() {
	// Command-line flags
	testsPath := flag.String("tests", "evals/core.json", "Path to the golden test suite JSON")
	serverURL := flag.String("url", "", "Base URL of a running query server. Defaults to $EVAL_BASE_URL or http://localhost:8000.")
	testID := flag.String("test", "", "Run a single test case by ID. If empty, runs the whole suite.")
	outputPath := flag.String("output", "eval_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	baseURL := *serverURL
	if baseURL == "" {
		baseURL = os.Getenv("EVAL_BASE_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	cases, err := eval.LoadTestCases(*testsPath)
	if err != nil {
		log.Fatalf("Failed to load test cases: %v", err)
	}

	if *testID != "" {
		var found []eval.TestCase
		for _, tc := range cases {
			if tc.ID == *testID {
				found = append(found, tc)
			}
		}
		if len(found) == 0 {
			log.Fatalf("Unknown test ID: %s (not present in %s)", *testID, *testsPath)
		}
		cases = found
	}

	// Print header
	fmt.Println("========================================")
	fmt.Println("ClearPath Golden Evals")
	fmt.Println("========================================")
	fmt.Printf("Suite: %s (%d cases)\n", *testsPath, len(cases))
	fmt.Printf("Server: %s\n", baseURL)
	fmt.Println()

	runner := eval.NewRunner(baseURL, *verbose)
	results := runner.RunAll(cases)

	// Print summary
	passed := 0
	failed := 0
	for _, result := range results {
		if result.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", len(results))
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	// Export results
	if err := runner.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}

	// Exit with error code if any tests failed
	if failed > 0 {
		os.Exit(1)
	}
}
