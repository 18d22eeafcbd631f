/*
Package resilience provides the circuit breaker guarding upstream release
fetches.

When the release host keeps failing, the proxy route answers 500 straight
away instead of holding every page load open for the full fetch timeout.

	breaker := resilience.New("release-upstream", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	data, err := resilience.Do(breaker, func() ([]byte, error) {
		return fetcher.Fetch(ctx)
	})

States move as follows:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
