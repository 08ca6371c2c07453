package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/troikatech/taxi-voicebot/internal/dispatch"
	"github.com/troikatech/taxi-voicebot/pkg/env"
	"github.com/troikatech/taxi-voicebot/pkg/mongo"
	"github.com/troikatech/taxi-voicebot/pkg/utils"
)

func main() {
	fmt.Println("========================================")
	fmt.Println("Database Connection Diagnostic Tool")
	fmt.Println("========================================")
	fmt.Println()

	// Load config
	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("MongoDB URI: %s\n", maskURL(cfg.MongoURI))
	fmt.Printf("Database Name: %s\n", cfg.DBName)
	fmt.Println()

	client, err := mongo.NewClient(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to create MongoDB client: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Test 1: Ping
	fmt.Println("Test 1: Pinging database...")
	if err := client.Ping(ctx); err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		fmt.Println()
		fmt.Println("SOLUTION:")
		fmt.Println("  Ensure MongoDB is running and accessible")
		fmt.Println("  Check MONGO_URI and DB_NAME in .env file")
		os.Exit(1)
	}
	fmt.Println("✅ SUCCESS: Database is reachable")
	fmt.Println()

	// Test 2: Check required collections respond to queries
	requiredCollections := []string{
		dispatch.CallsCollection,
		dispatch.BookingsCollection,
	}

	fmt.Println("Test 2: Checking required collections...")
	allGood := true
	for _, collection := range requiredCollections {
		err := client.Collection(collection).
			FindOne(ctx, bson.M{}).
			Err()

		if err != nil && err != driver.ErrNoDocuments {
			fmt.Printf("❌ %s: %v\n", collection, err)
			allGood = false
		} else {
			fmt.Printf("✅ %s: OK\n", collection)
		}
	}
	fmt.Println()

	// Test 3: Show the most recent bookings
	fmt.Println("Test 3: Recent bookings...")
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(5)

	cursor, err := client.Collection(dispatch.BookingsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		os.Exit(1)
	}
	defer cursor.Close(ctx)

	bookings := []dispatch.BookingRecord{}
	if err := cursor.All(ctx, &bookings); err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		os.Exit(1)
	}

	if len(bookings) == 0 {
		fmt.Println("  (no bookings yet)")
	}
	for _, b := range bookings {
		fmt.Printf("  %s  %s -> %s, %d pax, %s (caller %s)\n",
			b.CreatedAt.Format(time.RFC3339),
			b.Pickup,
			b.Destination,
			b.Passengers,
			b.PickupTime,
			utils.MaskPhoneNumber(b.CallerPhone),
		)
	}

	fmt.Println()
	if allGood {
		fmt.Println("========================================")
		fmt.Println("✅ All checks passed!")
		fmt.Println("========================================")
	} else {
		fmt.Println("========================================")
		fmt.Println("⚠️  Some collections are missing")
		fmt.Println("========================================")
		fmt.Println()
		fmt.Println("Collections will be created automatically when first used.")
		os.Exit(1)
	}
}

func maskURL(url string) string {
	if len(url) < 20 {
		return url
	}
	return url[:20] + "..."
}
