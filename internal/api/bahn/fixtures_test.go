package bahn

// Sample JSON responses for API testing.

const sampleLocationResponse = `[
	{
		"id": "A=1@O=Köln Messe/Deutz@X=6975000@Y=50940000@U=80@L=8003368@",
		"extId": "8003368",
		"evaNumber": 8003368,
		"name": "Köln Messe/Deutz",
		"lat": 50.94,
		"lon": 6.975,
		"type": "ST",
		"products": ["ICE", "REGIONAL", "SBAHN"],
		"weight": 22000
	},
	{
		"id": "A=2@O=Deutzer Freiheit, Köln@X=6973000@Y=50936000@",
		"extId": "",
		"name": "Deutzer Freiheit, Köln",
		"lat": 50.936,
		"lon": 6.973,
		"type": "ADR",
		"weight": 300
	}
]`

const sampleBoardResponse = `{
	"entries": [
		{
			"journeyId": "1|123456|0|80|23082026",
			"bahnhofsId": "8000105",
			"terminus": "München Hbf",
			"gleis": "7",
			"ezGleis": "8",
			"zeit": "2026-08-23T14:30:00",
			"ezZeit": "2026-08-23T14:37:00",
			"ueber": ["Frankfurt(Main)Hbf", "Mannheim Hbf", "Stuttgart Hbf"],
			"verkehrmittel": {
				"kurzText": "ICE",
				"mittelText": "ICE 123",
				"langText": "ICE 123 nach München",
				"name": "ICE 123"
			},
			"meldungen": []
		},
		{
			"journeyId": "1|654321|0|80|23082026",
			"bahnhofsId": "8000105",
			"terminus": "Berlin Hbf",
			"gleis": "12",
			"zeit": "2026-08-23T14:35:00",
			"ezZeit": "",
			"ueber": ["Frankfurt(Main)Hbf"],
			"verkehrmittel": {
				"kurzText": "ICE",
				"mittelText": "ICE 456",
				"langText": "ICE 456 nach Berlin",
				"name": "ICE 456"
			},
			"meldungen": [
				{"type": "HALT_AUSFALL", "text": "Halt entfällt"}
			]
		}
	]
}`

const sampleJourneyResponse = `{
	"journeyId": "1|123456|0|80|23082026",
	"zugName": "ICE 123",
	"reisetag": "2026-08-23",
	"cancelled": false,
	"halte": [
		{
			"name": "Frankfurt(Main)Hbf",
			"evaNumber": "8000105",
			"gleis": "7",
			"abfahrtsZeitpunkt": "2026-08-23T14:30:00",
			"ezAbfahrtsZeitpunkt": "2026-08-23T14:37:00"
		},
		{
			"name": "Mannheim Hbf",
			"evaNumber": "8000244",
			"gleis": "2",
			"ankunftsZeitpunkt": "2026-08-23T15:08:00",
			"abfahrtsZeitpunkt": "2026-08-23T15:10:00",
			"ezAbfahrtsZeitpunkt": "2026-08-23T15:15:00"
		},
		{
			"name": "München Hbf",
			"evaNumber": "8000261",
			"gleis": "18",
			"ankunftsZeitpunkt": "2026-08-23T17:02:00"
		}
	]
}`
