package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uploader stores image bytes through Cloudinary's signed upload endpoint and
// returns the resulting URL. The rest of the system treats that URL as opaque.
type Uploader struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	client    *http.Client
}

func NewUploader(cloudName, apiKey, apiSecret, folder string) *Uploader {
	return &Uploader{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *Uploader) StoreImage(ctx context.Context, image []byte) (string, error) {
	publicID := uuid.New().String()
	if u.folder != "" {
		publicID = u.folder + "/" + publicID
	}
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	// Cloudinary signs the sorted params concatenated with the API secret.
	signature := fmt.Sprintf("%x", sha1.Sum([]byte("public_id="+publicID+"&timestamp="+timestamp+u.apiSecret)))

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(image))
	form.Add("api_key", u.apiKey)
	form.Add("public_id", publicID)
	form.Add("timestamp", timestamp)
	form.Add("signature", signature)

	endpoint := "https://api.cloudinary.com/v1_1/" + u.cloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cloudinary upload failed with status %d: %s", res.StatusCode, body)
	}

	var uploadRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &uploadRes); err != nil {
		return "", err
	}
	if uploadRes.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", uploadRes.Error.Message)
	}
	if uploadRes.SecureURL != "" {
		return uploadRes.SecureURL, nil
	}
	if uploadRes.URL != "" {
		return uploadRes.URL, nil
	}
	return "", fmt.Errorf("cloudinary upload returned no url")
}
