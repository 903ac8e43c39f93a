// Package bucket turns an evaluated rollout frequency into a concrete
// per-identifier boolean decision.
//
// [rule.Evaluate] answers "what fraction of traffic should see this
// feature"; it says nothing about whether any particular user is in
// that fraction. Decide closes that gap: it hashes a rollout
// identifier (a user ID, a device ID, whatever the caller considers
// stable) together with the formula's own identity, normalizes the
// hash to a point in [0, 1), and compares it against the frequency.
// The same identifier against the same formula always lands on the
// same side of that comparison, so a user does not flicker in and out
// of a rollout between requests; salting with the formula's identity
// means two unrelated rollouts at the same percentage select
// independent users rather than always the same ones.
package bucket
