package ghe

// User is the abbreviated account object embedded in other resources.
type User struct {
	ID        int64  `json:"id"                   yaml:"id"`
	Login     string `json:"login"                yaml:"login"`
	Type      string `json:"type,omitempty"       yaml:"type,omitempty"`
	SiteAdmin bool   `json:"site_admin,omitempty" yaml:"site_admin,omitempty"`
	URL       string `json:"url,omitempty"        yaml:"url,omitempty"`
	HTMLURL   string `json:"html_url,omitempty"   yaml:"html_url,omitempty"`
}

// Repository is the abbreviated repository object embedded in other resources.
type Repository struct {
	ID       int64  `json:"id"                 yaml:"id"`
	Name     string `json:"name,omitempty"     yaml:"name,omitempty"`
	FullName string `json:"full_name"          yaml:"full_name"`
	Private  bool   `json:"private,omitempty"  yaml:"private,omitempty"`
	URL      string `json:"url,omitempty"      yaml:"url,omitempty"`
	HTMLURL  string `json:"html_url,omitempty" yaml:"html_url,omitempty"`
}

// RepositoryReference names a repository in a request body.
type RepositoryReference struct {
	FullName string `json:"full_name" validate:"required,contains=/" yaml:"full_name"`
}

// EnvironmentReference names a pre-receive environment in a request body.
type EnvironmentReference struct {
	ID int64 `json:"id" validate:"required,gt=0" yaml:"id"`
}

// ListOptions are the sort options shared by the admin listing endpoints.
// The embedded PageRequest selects which pages are fetched.
type ListOptions struct {
	PageRequest `url:"-"`

	// Sort: "created", "updated" or "name".
	Sort string `url:"sort,omitempty"`
	// Direction: "asc" or "desc".
	Direction string `url:"direction,omitempty"`
}

// Pages returns the page request, tolerating a nil receiver.
func (o *ListOptions) Pages() *PageRequest {
	if o == nil {
		return nil
	}

	return &o.PageRequest
}
