package dbooks

// searchResponse is the wire shape of /api/search.
type searchResponse struct {
	Status string    `json:"status"`
	Total  int       `json:"total"`
	Books  []rawBook `json:"books"`
}

// rawBook is one book entry as returned by the API.
type rawBook struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Authors     string `json:"authors"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	Year        string `json:"year"`
	Pages       string `json:"pages"`
	Filesize    string `json:"filesize"`
	MD5         string `json:"md5"`
	DownloadURL string `json:"download_url"`
}

// linksResponse is the wire shape of /api/download.
// The endpoint has returned both a flat list and a keyed map over time,
// so both fields are tolerated.
type linksResponse struct {
	Status string            `json:"status"`
	Links  []string          `json:"links"`
	Keyed  map[string]string `json:"download"`
}
