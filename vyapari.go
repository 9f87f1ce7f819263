/*
Package vyapari is a turn-based negotiation pipeline: an LLM plays a
bazaar vendor, and a deterministic rules engine validates every move
it proposes (stage transitions, happiness deltas, offer-assessment
consistency) before anything is persisted or spoken.

The model proposes, the engine disposes. See internal/engine for the
turn pipeline and internal/rules for the validation logic.
*/
package vyapari

// Version is the current release of the module.
const Version = "0.3.0"
