package ghe

import (
	"context"
	"time"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
)

// Pre-receive hook enforcement values.
const (
	EnforcementEnabled  = "enabled"
	EnforcementDisabled = "disabled"
	EnforcementTesting  = "testing"
)

// PreReceiveHook is a script run on every push to repositories it is enabled for.
type PreReceiveHook struct {
	ID                           int64                  `json:"id"                             yaml:"id"`
	Name                         string                 `json:"name"                           yaml:"name"`
	Enforcement                  string                 `json:"enforcement"                    yaml:"enforcement"`
	Script                       string                 `json:"script"                         yaml:"script"`
	ScriptRepository             *Repository            `json:"script_repository,omitempty"    yaml:"script_repository,omitempty"`
	Environment                  *PreReceiveEnvironment `json:"environment,omitempty"          yaml:"environment,omitempty"`
	AllowDownstreamConfiguration bool                   `json:"allow_downstream_configuration" yaml:"allow_downstream_configuration"`
}

// NewPreReceiveHook is the payload for creating a hook.
type NewPreReceiveHook struct {
	Name                         string                `json:"name"                                     validate:"required"`
	Script                       string                `json:"script"                                   validate:"required"`
	ScriptRepository             *RepositoryReference  `json:"script_repository"                        validate:"required"`
	Environment                  *EnvironmentReference `json:"environment"                              validate:"required"`
	Enforcement                  string                `json:"enforcement,omitempty"                    validate:"omitempty,oneof=enabled disabled testing"`
	AllowDownstreamConfiguration *bool                 `json:"allow_downstream_configuration,omitempty"`
}

// NewPreReceiveHookRequest fills the required fields of a create payload.
func NewPreReceiveHookRequest(name, scriptRepository, script string, environmentID int64) *NewPreReceiveHook {
	return &NewPreReceiveHook{
		Name:             name,
		Script:           script,
		ScriptRepository: &RepositoryReference{FullName: scriptRepository},
		Environment:      &EnvironmentReference{ID: environmentID},
	}
}

// UpdatePreReceiveHook is the payload for editing a hook. Nil fields are left unchanged.
type UpdatePreReceiveHook struct {
	Name                         *string               `json:"name,omitempty"                           validate:"omitempty,min=1"`
	Script                       *string               `json:"script,omitempty"                         validate:"omitempty,min=1"`
	ScriptRepository             *RepositoryReference  `json:"script_repository,omitempty"`
	Environment                  *EnvironmentReference `json:"environment,omitempty"`
	Enforcement                  *string               `json:"enforcement,omitempty"                    validate:"omitempty,oneof=enabled disabled testing"`
	AllowDownstreamConfiguration *bool                 `json:"allow_downstream_configuration,omitempty"`
}

// PreReceiveEnvironment is the chroot image pre-receive hooks run in.
type PreReceiveEnvironment struct {
	ID                 int64                          `json:"id"                            yaml:"id"`
	Name               string                         `json:"name"                          yaml:"name"`
	ImageURL           string                         `json:"image_url"                     yaml:"image_url"`
	URL                string                         `json:"url,omitempty"                 yaml:"url,omitempty"`
	HTMLURL            string                         `json:"html_url,omitempty"            yaml:"html_url,omitempty"`
	DefaultEnvironment bool                           `json:"default_environment"           yaml:"default_environment"`
	CreatedAt          *time.Time                     `json:"created_at,omitempty"          yaml:"created_at,omitempty"`
	HooksCount         int                            `json:"hooks_count"                   yaml:"hooks_count"`
	Download           *PreReceiveEnvironmentDownload `json:"download,omitempty"            yaml:"download,omitempty"`
}

// PreReceiveEnvironmentDownload is the state of the latest image download.
type PreReceiveEnvironmentDownload struct {
	URL          string     `json:"url,omitempty"           yaml:"url,omitempty"`
	State        string     `json:"state"                   yaml:"state"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty" yaml:"downloaded_at,omitempty"`
	Message      string     `json:"message,omitempty"       yaml:"message,omitempty"`
}

// Terminal reports whether the download has finished, successfully or not.
func (d *PreReceiveEnvironmentDownload) Terminal() bool {
	return d != nil && (d.State == constants.DownloadStateSuccess || d.State == constants.DownloadStateFailed)
}

// NewPreReceiveEnvironment is the payload for creating an environment.
type NewPreReceiveEnvironment struct {
	Name     string `json:"name"      validate:"required"`
	ImageURL string `json:"image_url" validate:"required,url"`
}

// UpdatePreReceiveEnvironment is the payload for editing an environment.
type UpdatePreReceiveEnvironment struct {
	Name     *string `json:"name,omitempty"      validate:"omitempty,min=1"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Release is a tagged release of a repository.
type Release struct {
	ID              int64          `json:"id"                         yaml:"id"`
	TagName         string         `json:"tag_name"                   yaml:"tag_name"`
	TargetCommitish string         `json:"target_commitish,omitempty" yaml:"target_commitish,omitempty"`
	Name            string         `json:"name"                       yaml:"name"`
	Body            string         `json:"body,omitempty"             yaml:"body,omitempty"`
	Draft           bool           `json:"draft"                      yaml:"draft"`
	Prerelease      bool           `json:"prerelease"                 yaml:"prerelease"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"       yaml:"created_at,omitempty"`
	PublishedAt     *time.Time     `json:"published_at,omitempty"     yaml:"published_at,omitempty"`
	Author          *User          `json:"author,omitempty"           yaml:"author,omitempty"`
	Assets          []ReleaseAsset `json:"assets,omitempty"           yaml:"assets,omitempty"`
	URL             string         `json:"url,omitempty"              yaml:"url,omitempty"`
	HTMLURL         string         `json:"html_url,omitempty"         yaml:"html_url,omitempty"`
	TarballURL      string         `json:"tarball_url,omitempty"      yaml:"tarball_url,omitempty"`
	ZipballURL      string         `json:"zipball_url,omitempty"      yaml:"zipball_url,omitempty"`
}

// ReleaseAsset is a file attached to a release.
type ReleaseAsset struct {
	ID                 int64      `json:"id"                             yaml:"id"`
	Name               string     `json:"name"                           yaml:"name"`
	Label              string     `json:"label,omitempty"                yaml:"label,omitempty"`
	State              string     `json:"state"                          yaml:"state"`
	ContentType        string     `json:"content_type"                   yaml:"content_type"`
	Size               int64      `json:"size"                           yaml:"size"`
	DownloadCount      int64      `json:"download_count"                 yaml:"download_count"`
	BrowserDownloadURL string     `json:"browser_download_url,omitempty" yaml:"browser_download_url,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"           yaml:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"           yaml:"updated_at,omitempty"`
	Uploader           *User      `json:"uploader,omitempty"             yaml:"uploader,omitempty"`
}

// NewRelease is the payload for creating a release.
type NewRelease struct {
	TagName         string `json:"tag_name"                   validate:"required"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Name            string `json:"name,omitempty"`
	Body            string `json:"body,omitempty"`
	Draft           bool   `json:"draft,omitempty"`
	Prerelease      bool   `json:"prerelease,omitempty"`
}

// UpdateRelease is the payload for editing a release. Nil fields are left unchanged.
type UpdateRelease struct {
	TagName         *string `json:"tag_name,omitempty"         validate:"omitempty,min=1"`
	TargetCommitish *string `json:"target_commitish,omitempty"`
	Name            *string `json:"name,omitempty"`
	Body            *string `json:"body,omitempty"`
	Draft           *bool   `json:"draft,omitempty"`
	Prerelease      *bool   `json:"prerelease,omitempty"`
}

// PreReceiveHooksClient manages pre-receive hooks (site admin).
type PreReceiveHooksClient interface {
	List(ctx context.Context, opts *ListOptions) ([]PreReceiveHook, error)
	Iterate(ctx context.Context, opts *ListOptions) *PageIterator[PreReceiveHook]
	Get(ctx context.Context, id int64) (*PreReceiveHook, error)
	Create(ctx context.Context, hook *NewPreReceiveHook) (*PreReceiveHook, error)
	Edit(ctx context.Context, id int64, update *UpdatePreReceiveHook) (*PreReceiveHook, error)
	Delete(ctx context.Context, id int64) error
}

// PreReceiveEnvironmentsClient manages pre-receive environments (site admin).
type PreReceiveEnvironmentsClient interface {
	List(ctx context.Context, opts *ListOptions) ([]PreReceiveEnvironment, error)
	Iterate(ctx context.Context, opts *ListOptions) *PageIterator[PreReceiveEnvironment]
	Get(ctx context.Context, id int64) (*PreReceiveEnvironment, error)
	Create(ctx context.Context, environment *NewPreReceiveEnvironment) (*PreReceiveEnvironment, error)
	Edit(ctx context.Context, id int64, update *UpdatePreReceiveEnvironment) (*PreReceiveEnvironment, error)
	Delete(ctx context.Context, id int64) error
	DownloadStatus(ctx context.Context, id int64) (*PreReceiveEnvironmentDownload, error)
	TriggerDownload(ctx context.Context, id int64) (*PreReceiveEnvironmentDownload, error)
	WaitForDownload(ctx context.Context, id int64, interval time.Duration) (*PreReceiveEnvironmentDownload, error)
}

// ReleasesClient manages repository releases.
type ReleasesClient interface {
	List(ctx context.Context, owner, repo string, pages *PageRequest) ([]Release, error)
	Stream(ctx context.Context, owner, repo string, pages *PageRequest) <-chan PageResult[Release]
	Get(ctx context.Context, owner, repo string, id int64) (*Release, error)
	GetLatest(ctx context.Context, owner, repo string) (*Release, error)
	GetByTag(ctx context.Context, owner, repo, tag string) (*Release, error)
	Create(ctx context.Context, owner, repo string, release *NewRelease) (*Release, error)
	Edit(ctx context.Context, owner, repo string, id int64, update *UpdateRelease) (*Release, error)
	Delete(ctx context.Context, owner, repo string, id int64) error
	ListAssets(ctx context.Context, owner, repo string, id int64, pages *PageRequest) ([]ReleaseAsset, error)
}
