package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

// User represents the structure of a user document to insert
type User struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
	City  string `json:"city"`
}

var cities = []string{"NYC", "LA", "SF", "Boston", "Chicago"}

// generateRandomName generates a random 6-letter name
func generateRandomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	name[0] = name[0] - 32
	return string(name)
}

func randomUser(rng *rand.Rand) User {
	name := generateRandomName(rng)
	return User{
		Name:  name,
		Age:   rng.Intn(82) + 18,
		Email: fmt.Sprintf("%s@example.com", strings.ToLower(name)),
		City:  cities[rng.Intn(len(cities))],
	}
}

func post(url string, body interface{}, want int) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// insertBatch sends one batch insert request
func insertBatch(baseURL, collection string, users []User) error {
	return post(baseURL+"/collections/"+collection+"/batch", map[string]interface{}{"documents": users}, http.StatusCreated)
}

// runQueries issues the same city queries repeatedly so later rounds hit the cache
func runQueries(baseURL, collection string, rounds int) (time.Duration, int) {
	start := time.Now()
	errors := 0
	for r := 0; r < rounds; r++ {
		for _, city := range cities {
			query := map[string]interface{}{
				"filter": map[string]interface{}{"city": city, "age": map[string]interface{}{"$gte": 30}},
				"sort":   []map[string]interface{}{{"field": "age", "direction": -1}},
				"limit":  10,
			}
			if err := post(baseURL+"/collections/"+collection+"/find", query, http.StatusOK); err != nil {
				errors++
			}
		}
	}
	return time.Since(start), errors
}

func main() {
	var (
		numUsers   = flag.Int("users", 1000, "Number of users to insert")
		batchSize  = flag.Int("batch", 100, "Documents per batch insert")
		serverURL  = flag.String("url", "http://localhost:8080", "Server URL")
		collection = flag.String("collection", "users", "Target collection")
		rounds     = flag.Int("query-rounds", 20, "Rounds of find queries after the inserts")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	if *numUsers <= 0 || *batchSize <= 0 {
		fmt.Println("Error: -users and -batch must be greater than 0")
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Starting load test: inserting %d users to %s in batches of %d\n", *numUsers, *serverURL, *batchSize)

	startTime := time.Now()
	successCount := 0
	errorCount := 0

	for inserted := 0; inserted < *numUsers; inserted += *batchSize {
		n := min(*batchSize, *numUsers-inserted)
		batch := make([]User, n)
		for i := range batch {
			batch[i] = randomUser(rng)
		}

		if err := insertBatch(*serverURL, *collection, batch); err != nil {
			errorCount += n
			fmt.Printf("Error inserting batch at %d: %v\n", inserted, err)
		} else {
			successCount += n
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Progress: %d/%d users - Rate: %.1f users/sec - Success: %d, Errors: %d\n",
			inserted+n, *numUsers, float64(inserted+n)/elapsed.Seconds(), successCount, errorCount)
	}
	insertTime := time.Since(startTime)

	queryTime, queryErrors := runQueries(*serverURL, *collection, *rounds)
	queries := *rounds * len(cities)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total users attempted: %d\n", *numUsers)
	fmt.Printf("Successful inserts:    %d\n", successCount)
	fmt.Printf("Failed inserts:        %d\n", errorCount)
	fmt.Printf("Insert time:           %v\n", insertTime)
	fmt.Printf("Average insert rate:   %.2f users/sec\n", float64(*numUsers)/insertTime.Seconds())
	if queries > 0 {
		fmt.Printf("Queries issued:        %d (%d failed)\n", queries, queryErrors)
		fmt.Printf("Average query time:    %v\n", queryTime/time.Duration(queries))
	}

	if errorCount > 0 || queryErrors > 0 {
		fmt.Printf("\nWarning: %d insert and %d query errors occurred during the load test\n", errorCount, queryErrors)
		os.Exit(1)
	}

	fmt.Println("\nLoad test completed successfully!")
}
