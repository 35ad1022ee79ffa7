package bahn

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

// bahn.de rejects requests that do not look like they come from its own
// web frontend, so every request carries a full browser header set.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

var uaCounter atomic.Uint64

// setHeaders applies the browser-like header set to req. The
// x-correlation-id is freshly generated per request and the User-Agent
// rotates through the known set.
func setHeaders(req *http.Request) {
	ua := userAgents[uaCounter.Add(1)%uint64(len(userAgents))]

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Origin", "https://www.bahn.de")
	req.Header.Set("Referer", "https://www.bahn.de/buchung/fahrplan/suche")
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("sec-ch-ua", `"Chromium";v="131", "Not?A_Brand";v="24", "Google Chrome";v="131"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("x-correlation-id", fmt.Sprintf("%s_%s", uuid.New(), uuid.New()))
}
