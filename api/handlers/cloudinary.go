package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	cldapi "github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/linesmerrill/activities-api/config"
)

const activityImageFolder = "activities"

// CloudinaryHandler signs direct uploads of activity images
type CloudinaryHandler struct {
	CloudName string
	APIKey    string
	APISecret string
	now       func() time.Time
}

// UploadSignature is handed to the client for a signed upload
type UploadSignature struct {
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	Folder    string `json:"folder"`
	APIKey    string `json:"apiKey"`
	CloudName string `json:"cloudName"`
}

// GenerateSignature generates a signature for Cloudinary uploads
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	if c.APISecret == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "image uploads are not configured", "code": "NOT_CONFIGURED"})
		return
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	timestamp := strconv.FormatInt(now().Unix(), 10)

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", activityImageFolder)
	signature, err := cldapi.SignParameters(params, c.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadSignature{
		Timestamp: timestamp,
		Signature: signature,
		Folder:    activityImageFolder,
		APIKey:    c.APIKey,
		CloudName: c.CloudName,
	})
}
