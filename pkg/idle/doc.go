// Package idle owns IdleNodeEntry: Active -> Idle -> Sleeping -> Waking
// -> Active, with a sleep floor enforced on Wake and integer-cent
// savings accumulated on every exit from Sleeping.
package idle
