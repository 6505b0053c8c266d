package client_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonwraymond/ticketops/auth"
	"github.com/jonwraymond/ticketops/cache"
	"github.com/jonwraymond/ticketops/client"
	"github.com/jonwraymond/ticketops/resilience"
)

func Example() {
	c, err := client.New(client.Config{
		Instance: "dev12345",
		Credentials: &auth.Config{
			Type:     "basic",
			Username: "${ITSM_USER}",
			Password: "${ITSM_PASSWORD}",
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	records, err := c.Get(context.Background(), "incident", client.Params{
		"sysparm_query": "active=true",
		"sysparm_limit": 10,
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, record := range records {
		fmt.Println(record["number"])
	}
}

func Example_tuned() {
	c, err := client.New(client.Config{
		Instance: "https://itsm.example.com",
		Credentials: &auth.Config{
			Type:         "oauth",
			ClientID:     "${ITSM_CLIENT_ID}",
			ClientSecret: "${ITSM_CLIENT_SECRET}",
		},
		Retry: resilience.Policy{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    time.Minute,
		},
		Breaker: resilience.BreakerConfig{
			FailureThreshold: 3,
			CoolDown:         10 * time.Second,
		},
		Timeout:  15 * time.Second,
		Cache:    cache.NewMemoryCache(),
		CacheTTL: time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	record, err := c.Create(context.Background(), "incident", client.Record{
		"short_description": "printer on fire",
		"urgency":           "1",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(record["sys_id"])
}
