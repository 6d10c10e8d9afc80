package oem

// Seeds are inserted for a make the first time a store is used and that make
// has no rows. Titles follow the manufacturer's wording.
var Seeds = []Entry{
	{
		Make:        "BMW",
		Code:        "480A12",
		Title:       "Rear brake pad wear sensor: wear limit reached / circuit open",
		Description: "The rear brake pad wear sensor circuit is open. Either the pads have worn through to the sensor or the sensor wiring is damaged.",
		Source:      "BMW ISTA fault memory",
	},
	{
		Make:        "BMW",
		Code:        "2A82",
		Title:       "VANOS, intake: control fault",
		Description: "The intake camshaft did not reach the position commanded by the DME within the permitted tolerance.",
		Source:      "BMW ISTA fault memory",
	},
	{
		Make:        "BMW",
		Code:        "2A87",
		Title:       "VANOS, exhaust: control fault",
		Description: "The exhaust camshaft did not reach the position commanded by the DME within the permitted tolerance.",
		Source:      "BMW ISTA fault memory",
	},
	{
		Make:        "BMW",
		Code:        "29E0",
		Title:       "Mixture control, bank 1: mixture too lean",
		Description: "Mixture adaptation for cylinders of bank 1 has reached its lean limit.",
		Source:      "BMW ISTA fault memory",
	},
	{
		Make:        "BMW",
		Code:        "29E1",
		Title:       "Mixture control, bank 2: mixture too lean",
		Description: "Mixture adaptation for cylinders of bank 2 has reached its lean limit.",
		Source:      "BMW ISTA fault memory",
	},
}

// seedsByMake groups entries by normalized make, preserving order.
func seedsByMake(entries []Entry) ([]string, map[string][]Entry) {
	var makes []string
	out := make(map[string][]Entry)
	for _, e := range entries {
		e = e.Normalized()
		if _, ok := out[e.Make]; !ok {
			makes = append(makes, e.Make)
		}
		out[e.Make] = append(out[e.Make], e)
	}
	return makes, out
}
