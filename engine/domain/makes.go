package domain

// MinModelYear is the earliest year we accept; OBD-II arrived in 1996 but
// earlier OBD-I cars still come through with symptom-only questions.
const MinModelYear = 1980

// MaxModelYear is the latest year we accept (current + 1 for next-year models).
const MaxModelYear = 2027
