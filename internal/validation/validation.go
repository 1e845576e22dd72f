// Package validation checks channel, config and token payloads before they
// reach the store or the automation script.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"golang.org/x/oauth2"
)

// Config fields accepted by POST /api/config.
const (
	FieldDriveFolderID    = "drive_folder_id"
	FieldVideoTitle       = "video_title"
	FieldVideoDescription = "video_description"
	FieldVideoTags        = "video_tags"
)

var (
	channelIDRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	driveIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
	categoryIDRegex = regexp.MustCompile(`^[0-9]{1,3}$`)
)

// pythonExpiry is the expiry layout google-auth writes without a zone suffix.
const pythonExpiry = "2006-01-02T15:04:05.999999"

// Validator holds the limits applied to channel and config payloads.
type Validator struct {
	maxTemplateLength int
	maxTags           int
}

// New creates a validator. Non-positive limits disable the corresponding check.
func New(maxTemplateLength, maxTags int) *Validator {
	return &Validator{
		maxTemplateLength: maxTemplateLength,
		maxTags:           maxTags,
	}
}

// ExtractFolderID returns the Drive folder id of a folder share link, or the
// input unchanged when it is not one. isURL reports which case applied.
func ExtractFolderID(input string) (id string, isURL bool) {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "drive.google.com") || !strings.Contains(input, "/folders/") {
		return input, false
	}

	parts := strings.Split(input, "/folders/")
	id = parts[len(parts)-1]
	id = strings.SplitN(id, "?", 2)[0]
	id = strings.SplitN(id, "#", 2)[0]
	id = strings.SplitN(id, "/", 2)[0]
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return id, true
}

// IsValidChannelID reports whether id can be used as a channel key.
func (v *Validator) IsValidChannelID(id string) bool {
	return channelIDRegex.MatchString(id)
}

// IsValidFolderID reports whether id looks like a Drive folder id.
func (v *Validator) IsValidFolderID(id string) bool {
	return driveIDRegex.MatchString(id)
}

// IsValidFileID reports whether id looks like a Drive file id.
func (v *Validator) IsValidFileID(id string) bool {
	return driveIDRegex.MatchString(id)
}

// ChannelFromData builds a new channel from a channelData payload. The
// channel id comes from data["channel_id"], falling back to channelID.
func (v *Validator) ChannelFromData(channelID string, data map[string]interface{}) (*models.Channel, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("channelData is required")
	}

	id, err := stringField(data, "channel_id")
	if err != nil {
		return nil, err
	}
	if id == nil || *id == "" {
		id = &channelID
	}
	if !v.IsValidChannelID(*id) {
		return nil, fmt.Errorf("invalid channel_id: %q", *id)
	}
	if channelID != "" && channelID != *id {
		return nil, fmt.Errorf("channelId %q does not match channel_id %q", channelID, *id)
	}

	patch, err := v.PatchFromData(data)
	if err != nil {
		return nil, err
	}
	if patch.ChannelName == nil || strings.TrimSpace(*patch.ChannelName) == "" {
		return nil, fmt.Errorf("channel_name is required")
	}
	if patch.DriveFolderID == nil || *patch.DriveFolderID == "" {
		return nil, fmt.Errorf("drive_folder_id is required")
	}

	channel := &models.Channel{ChannelID: *id, Enabled: true}
	applyPatch(channel, patch)
	channel.ApplyDefaults()

	return channel, nil
}

// PatchFromData converts a channelData payload into a patch. Unknown keys are
// ignored and known keys with the wrong type are rejected.
func (v *Validator) PatchFromData(data map[string]interface{}) (models.ChannelPatch, error) {
	var patch models.ChannelPatch
	var err error

	if patch.ChannelName, err = stringField(data, "channel_name"); err != nil {
		return patch, err
	}
	if patch.TitleTemplate, err = stringField(data, "title_template"); err != nil {
		return patch, err
	}
	if patch.DescriptionTemplate, err = stringField(data, "description_template"); err != nil {
		return patch, err
	}
	if patch.CategoryID, err = stringField(data, "category_id"); err != nil {
		return patch, err
	}
	if patch.Enabled, err = boolField(data, "enabled"); err != nil {
		return patch, err
	}
	if patch.Tags, err = v.listField(data, "tags"); err != nil {
		return patch, err
	}
	if patch.Categories, err = v.listField(data, "categories"); err != nil {
		return patch, err
	}

	if err := v.folderFields(data, &patch); err != nil {
		return patch, err
	}

	if patch.CategoryID != nil && !categoryIDRegex.MatchString(*patch.CategoryID) {
		return patch, fmt.Errorf("invalid category_id: %q", *patch.CategoryID)
	}
	for name, tmpl := range map[string]*string{
		"title_template":       patch.TitleTemplate,
		"description_template": patch.DescriptionTemplate,
	} {
		if tmpl != nil && v.maxTemplateLength > 0 && len(*tmpl) > v.maxTemplateLength {
			return patch, fmt.Errorf("%s exceeds %d characters", name, v.maxTemplateLength)
		}
	}

	return patch, nil
}

// folderFields resolves drive_folder_id and drive_folder_url. Either may hold a
// share link; the id is extracted and the link is kept as the url.
func (v *Validator) folderFields(data map[string]interface{}, patch *models.ChannelPatch) error {
	rawID, err := stringField(data, "drive_folder_id")
	if err != nil {
		return err
	}
	rawURL, err := stringField(data, "drive_folder_url")
	if err != nil {
		return err
	}

	input := rawID
	if input == nil || *input == "" {
		input = rawURL
	}
	if input == nil {
		return nil
	}

	id, isURL := ExtractFolderID(*input)
	if !v.IsValidFolderID(id) {
		return fmt.Errorf("invalid drive folder: %q", *input)
	}
	patch.DriveFolderID = &id

	switch {
	case isURL:
		link := strings.TrimSpace(*input)
		patch.DriveFolderURL = &link
	case rawURL != nil:
		patch.DriveFolderURL = rawURL
	}
	return nil
}

// ParseConfigUpdate validates a {field, value} pair. It returns the store patch
// and the argument to hand to the matching set-* script verb.
func (v *Validator) ParseConfigUpdate(field string, value interface{}) (models.ConfigPatch, string, error) {
	var patch models.ConfigPatch

	switch field {
	case FieldVideoTags:
		tags, err := ParseTags(value)
		if err != nil {
			return patch, "", err
		}
		if v.maxTags > 0 && len(tags) > v.maxTags {
			return patch, "", fmt.Errorf("at most %d tags are allowed", v.maxTags)
		}
		patch.VideoTags = &tags
		return patch, strings.Join(tags, ","), nil

	case FieldDriveFolderID, FieldVideoTitle, FieldVideoDescription:
		s, ok := value.(string)
		if !ok {
			return patch, "", fmt.Errorf("%s must be a string", field)
		}
		s = strings.TrimSpace(s)

		switch field {
		case FieldDriveFolderID:
			id, _ := ExtractFolderID(s)
			if !v.IsValidFolderID(id) {
				return patch, "", fmt.Errorf("invalid drive folder: %q", s)
			}
			patch.DriveFolderID = &id
			return patch, id, nil
		case FieldVideoTitle:
			if s == "" {
				return patch, "", fmt.Errorf("video_title cannot be empty")
			}
			if v.maxTemplateLength > 0 && len(s) > v.maxTemplateLength {
				return patch, "", fmt.Errorf("video_title exceeds %d characters", v.maxTemplateLength)
			}
			patch.VideoTitle = &s
		default:
			if v.maxTemplateLength > 0 && len(s) > v.maxTemplateLength {
				return patch, "", fmt.Errorf("video_description exceeds %d characters", v.maxTemplateLength)
			}
			patch.VideoDescription = &s
		}
		return patch, s, nil

	default:
		return patch, "", fmt.Errorf("Unknown field: %s", field)
	}
}

// ParseTags accepts a JSON array of strings or a comma separated string.
// Entries are trimmed and empty ones dropped.
func ParseTags(value interface{}) ([]string, error) {
	var raw []string

	switch t := value.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []interface{}:
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tag %d is not a string", i)
			}
			raw = append(raw, s)
		}
	case nil:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("tags must be an array or a comma separated string")
	}

	tags := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			tags = append(tags, s)
		}
	}
	return tags, nil
}

// ValidateToken checks that payload is an authorized-user credential the
// script can refresh, and returns it as an oauth2 token.
func ValidateToken(payload map[string]interface{}) (*oauth2.Token, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("token is required")
	}

	var missing []string
	str := func(key string) string {
		s, _ := payload[key].(string)
		return strings.TrimSpace(s)
	}
	for _, key := range []string{"refresh_token", "client_id", "client_secret"} {
		if str(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("token is missing %s", strings.Join(missing, ", "))
	}

	token := &oauth2.Token{
		AccessToken:  str("access_token"),
		RefreshToken: str("refresh_token"),
		TokenType:    str("token_type"),
	}
	if token.AccessToken == "" {
		token.AccessToken = str("token")
	}

	if expiry := str("expiry"); expiry != "" {
		t, err := time.Parse(time.RFC3339, expiry)
		if err != nil {
			if t, err = time.Parse(pythonExpiry, expiry); err != nil {
				return nil, fmt.Errorf("invalid token expiry: %q", expiry)
			}
		}
		token.Expiry = t.UTC()
	}

	return token, nil
}

func applyPatch(c *models.Channel, p models.ChannelPatch) {
	if p.ChannelName != nil {
		c.ChannelName = strings.TrimSpace(*p.ChannelName)
	}
	if p.DriveFolderID != nil {
		c.DriveFolderID = *p.DriveFolderID
	}
	if p.DriveFolderURL != nil {
		c.DriveFolderURL = *p.DriveFolderURL
	}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.TitleTemplate != nil {
		c.TitleTemplate = *p.TitleTemplate
	}
	if p.DescriptionTemplate != nil {
		c.DescriptionTemplate = *p.DescriptionTemplate
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
	if p.CategoryID != nil {
		c.CategoryID = *p.CategoryID
	}
	if p.Categories != nil {
		c.Categories = *p.Categories
	}
}

func stringField(data map[string]interface{}, key string) (*string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", key)
	}
	return &s, nil
}

func boolField(data map[string]interface{}, key string) (*bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	return &b, nil
}

func (v *Validator) listField(data map[string]interface{}, key string) (*[]string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, err := ParseTags(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if v.maxTags > 0 && len(list) > v.maxTags {
		return nil, fmt.Errorf("at most %d %s are allowed", v.maxTags, key)
	}
	return &list, nil
}
