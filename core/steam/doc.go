// Package steam provides the resilient HTTP client for the Steamworks
// partner Web API.
//
// # Retry Policy
//
// Each call performs up to 1 + MaxRetries attempts. An attempt that produced
// no response (transport error, per-attempt timeout) or a status strictly
// greater than 500 is retried after a fixed delay. A received 2xx, 4xx or
// exactly-500 response is definitive and returned verbatim to the caller,
// which decides whether it is fatal for a batch or a single record.
//
// # Auditing
//
// Every call yields a CallRecord with the exact method, URL and body sent
// and the status, body and elapsed time received. Callers persist these as
// IntegrationEvent rows. When all attempts fail the record carries a
// synthetic 503 whose body is the final transport error.
package steam
