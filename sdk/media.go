// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sdk

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"
)

// Media types accepted by UploadMedia.
const (
	MediaImage = "image"
	MediaVoice = "voice"
	MediaFile  = "file"
	MediaVideo = "video"
)

// MediaUpload identifies uploaded media for use in messages.
type MediaUpload struct {
	Type      string
	MediaID   string
	CreatedAt time.Time
}

// UploadMedia uploads r as a temporary media file.
func (c *Client) UploadMedia(ctx context.Context, mediaType, filename string, r io.Reader) (*MediaUpload, error) {
	switch mediaType {
	case MediaImage, MediaVoice, MediaFile, MediaVideo:
	case "":
		return nil, missingField("type")
	default:
		return nil, &ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unsupported media type %q", mediaType),
			Suggestion: "use image, voice, file or video",
		}
	}
	if filename == "" {
		return nil, missingField("filename")
	}
	if r == nil {
		return nil, missingField("media")
	}

	resp, err := c.Upload(ctx, "/media/upload", url.Values{"type": {mediaType}}, "media", filename, r)
	if err != nil {
		return nil, err
	}

	var out struct {
		Type      string `json:"type"`
		MediaID   string `json:"media_id"`
		CreatedAt int64  `json:"created_at"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.Type == "" {
		out.Type = mediaType
	}
	return &MediaUpload{
		Type:      out.Type,
		MediaID:   out.MediaID,
		CreatedAt: time.UnixMilli(out.CreatedAt),
	}, nil
}
