package registration

import "time"

// Age returns completed calendar years between dateOfBirth and now.
func Age(dateOfBirth, now time.Time) int {
	years := now.Year() - dateOfBirth.Year()
	if now.Month() < dateOfBirth.Month() ||
		(now.Month() == dateOfBirth.Month() && now.Day() < dateOfBirth.Day()) {
		years--
	}
	return years
}

// PreferredRange derives the default partner age range around age, clamped
// to policy bounds. Guarantees minPolicy <= min <= max <= maxPolicy for any
// age within policy.
func PreferredRange(age, spread, minPolicy, maxPolicy int) (int, int) {
	min := age - spread
	if min < minPolicy {
		min = minPolicy
	}
	max := age + spread
	if max > maxPolicy {
		max = maxPolicy
	}
	return min, max
}
