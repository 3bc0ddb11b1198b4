package wikipedia

// SearchHit is one full-text search result
type SearchHit struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Page is a fetched article with its extract as HTML
type Page struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	FullURL string `json:"fullurl"`
	Missing bool   `json:"missing"`
}

type searchResponse struct {
	Query struct {
		Search []SearchHit `json:"search"`
	} `json:"query"`
	Error *apiErrorBody `json:"error"`
}

type pagesResponse struct {
	Query struct {
		Pages []Page `json:"pages"`
	} `json:"query"`
	Error *apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code string `json:"code"`
	Info string `json:"info"`
}
