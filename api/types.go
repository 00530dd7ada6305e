package api

// CallbackResponse is the JSON body returned to the browser after the OAuth redirect.
type CallbackResponse struct {
	Message   string `json:"message"`
	UserName  string `json:"user_name,omitempty"`
	UserToken string `json:"user_token,omitempty"`
	CheckThis string `json:"check this,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
