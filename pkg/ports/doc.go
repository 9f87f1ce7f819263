// Package ports defines the interfaces between the negotiation core
// and its adapters: durable session storage, the cognition gateway,
// and distributed locking. Adapters live under internal/adapters;
// the core depends only on these contracts.
package ports
