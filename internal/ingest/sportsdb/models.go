package sportsdb

// RawEvent is one event as returned by TheSportsDB. Every value arrives as a string;
// nullable fields are pointers so that JSON null and a missing key both decode to nil.
type RawEvent struct {
	ID        string  `json:"idEvent"`
	Event     string  `json:"strEvent"`
	Sport     string  `json:"strSport"`
	LeagueID  string  `json:"idLeague"`
	Season    string  `json:"strSeason"`
	HomeTeam  *string `json:"strHomeTeam"`
	AwayTeam  *string `json:"strAwayTeam"`
	Timestamp *string `json:"strTimestamp"`
	Status    *string `json:"strStatus"`
	DateEvent *string `json:"dateEvent"`
	Venue     *string `json:"strVenue"`
}

// eventsEnvelope is the response body of eventsday.php and eventsseason.php
type eventsEnvelope struct {
	Events []RawEvent `json:"events"`
}
