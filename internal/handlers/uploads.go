package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"cragline/backend/internal/config"
	"cragline/backend/internal/httpjson"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/middleware"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	credentialspb "cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// SignBlob signs payload as the service account email.
type SignBlob func(ctx context.Context, email string, payload []byte) ([]byte, error)

// IAMSigner signs through the IAM Credentials API, which lets Cloud Run
// sign URLs without a private key on disk.
func IAMSigner(c *credentials.IamCredentialsClient) SignBlob {
	if c == nil {
		return nil
	}
	return func(ctx context.Context, email string, payload []byte) ([]byte, error) {
		resp, err := c.SignBlob(ctx, &credentialspb.SignBlobRequest{
			Name:    "projects/-/serviceAccounts/" + email,
			Payload: payload,
		})
		if err != nil {
			return nil, err
		}
		return resp.SignedBlob, nil
	}
}

// StatObject reads object metadata; nil disables upload confirmation.
type StatObject func(ctx context.Context, bucket, object string) (*storage.ObjectAttrs, error)

func StorageStat(c *storage.Client) StatObject {
	if c == nil {
		return nil
	}
	return func(ctx context.Context, bucket, object string) (*storage.ObjectAttrs, error) {
		return c.Bucket(bucket).Object(object).Attrs(ctx)
	}
}

// MediaKind selects the folder an upload lands in.
type MediaKind string

const (
	MediaPost    MediaKind = "post"
	MediaMessage MediaKind = "message"
	MediaAvatar  MediaKind = "avatar"
	MediaGym     MediaKind = "gym"
)

var mediaFolders = map[MediaKind]string{
	MediaPost:    "posts",
	MediaMessage: "messages",
	MediaAvatar:  "avatars",
	MediaGym:     "gyms",
}

const maxUploadBatch = 10

type Uploads struct {
	cfg  config.Config
	sign SignBlob
	stat StatObject
	log  *logger.Logger
	now  func() time.Time
}

func NewUploads(cfg config.Config, sign SignBlob, stat StatObject, log *logger.Logger) *Uploads {
	if log == nil {
		log = logger.Nop()
	}
	return &Uploads{cfg: cfg, sign: sign, stat: stat, log: log, now: time.Now}
}

type signedURLReq struct {
	Kind           MediaKind `json:"kind"`
	FileName       string    `json:"fileName"`
	ContentType    string    `json:"contentType"`
	ExpiresSeconds int64     `json:"expiresSeconds,omitempty"` // default 900
}

type signedURLResp struct {
	ObjectPath string `json:"objectPath"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	ExpiresAt  int64  `json:"expiresAt"`
	Error      string `json:"error,omitempty"`
}

func (h *Uploads) CreateSignedUploadURL(w http.ResponseWriter, r *http.Request) {
	var req signedURLReq
	if err := httpjson.Read(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	uid := middleware.Session(r).UID
	resp, err := h.signed(r.Context(), uid, req)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, resp)
}

type signedURLsReq struct {
	Items []signedURLReq `json:"items"`
}

// CreateSignedUploadURLs signs up to ten uploads; a failing item carries its
// error instead of failing the batch.
func (h *Uploads) CreateSignedUploadURLs(w http.ResponseWriter, r *http.Request) {
	var req signedURLsReq
	if err := httpjson.Read(w, r, &req); err != nil || len(req.Items) == 0 {
		httpjson.Error(w, http.StatusBadRequest, "items is required")
		return
	}
	if len(req.Items) > maxUploadBatch {
		httpjson.Error(w, http.StatusBadRequest, fmt.Sprintf("at most %d items per request", maxUploadBatch))
		return
	}
	uid := middleware.Session(r).UID
	out := make([]signedURLResp, 0, len(req.Items))
	for _, it := range req.Items {
		resp, err := h.signed(r.Context(), uid, it)
		if err != nil {
			out = append(out, signedURLResp{Method: http.MethodPut, Error: err.Error()})
			continue
		}
		out = append(out, resp)
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"items": out})
}

type confirmReq struct {
	ObjectPath string `json:"objectPath"`
}

// Confirm checks that an upload landed and returns its download URL.
func (h *Uploads) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmReq
	if err := httpjson.Read(w, r, &req); err != nil || req.ObjectPath == "" {
		httpjson.Error(w, http.StatusBadRequest, "objectPath is required")
		return
	}
	uid := middleware.Session(r).UID
	if !strings.HasPrefix(req.ObjectPath, "users/"+uid+"/") {
		httpjson.Error(w, http.StatusForbidden, "not your upload")
		return
	}
	if h.stat == nil {
		httpjson.Error(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}
	attrs, err := h.stat(r.Context(), h.cfg.StorageBucket, req.ObjectPath)
	if err == storage.ErrObjectNotExist {
		httpjson.Error(w, http.StatusNotFound, "upload not found")
		return
	}
	if err != nil {
		h.log.Error(r.Context(), "stat upload", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to check upload")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"objectPath":  req.ObjectPath,
		"contentType": attrs.ContentType,
		"size":        attrs.Size,
		"mediaUrl":    DownloadURL(h.cfg.StorageBucket, req.ObjectPath),
	})
}

// DownloadURL is the Firebase Storage URL clients render media from.
func DownloadURL(bucket, objectPath string) string {
	return "https://firebasestorage.googleapis.com/v0/b/" + bucket + "/o/" + url.PathEscape(objectPath) + "?alt=media"
}

// ObjectPath places an upload under the caller's folder with a unique
// prefix so two uploads never collide.
func ObjectPath(uid string, kind MediaKind, fileName string, id string) (string, error) {
	folder, ok := mediaFolders[kind]
	if !ok {
		return "", fmt.Errorf("kind must be one of post, message, avatar, gym")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	return fmt.Sprintf("users/%s/%s/%s-%s", uid, folder, id, name), nil
}

func allowedContentType(ct string) bool {
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

func (h *Uploads) signed(ctx context.Context, uid string, req signedURLReq) (signedURLResp, error) {
	if uid == "" {
		return signedURLResp{}, fmt.Errorf("sign-in required")
	}
	ct := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !allowedContentType(ct) {
		return signedURLResp{}, fmt.Errorf("contentType must be an image or video type")
	}
	objectPath, err := ObjectPath(uid, req.Kind, req.FileName, uuid.NewString())
	if err != nil {
		return signedURLResp{}, err
	}
	u, exp, err := h.signedURL(ctx, objectPath, ct, req.ExpiresSeconds)
	if err != nil {
		return signedURLResp{}, err
	}
	return signedURLResp{ObjectPath: objectPath, URL: u, Method: http.MethodPut, ExpiresAt: exp.Unix()}, nil
}

func (h *Uploads) signedURL(ctx context.Context, objectPath, contentType string, expiresSeconds int64) (string, time.Time, error) {
	if h.cfg.StorageBucket == "" {
		return "", time.Time{}, fmt.Errorf("FIREBASE_STORAGE_BUCKET is not set")
	}
	if h.cfg.SignedURLServiceAccountEmail == "" {
		return "", time.Time{}, fmt.Errorf("SIGNED_URL_SERVICE_ACCOUNT_EMAIL is not set")
	}
	if h.sign == nil {
		return "", time.Time{}, fmt.Errorf("IAM credentials client not available")
	}
	if expiresSeconds <= 0 || expiresSeconds > 3600 {
		expiresSeconds = 900
	}
	exp := h.now().Add(time.Duration(expiresSeconds) * time.Second)

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodPut,
		Expires:        exp,
		ContentType:    contentType,
		GoogleAccessID: h.cfg.SignedURLServiceAccountEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			return h.sign(ctx, h.cfg.SignedURLServiceAccountEmail, b)
		},
	}

	u, err := storage.SignedURL(h.cfg.StorageBucket, objectPath, opts)
	if err != nil {
		h.log.Error(ctx, "sign upload url", err)
		return "", time.Time{}, fmt.Errorf("failed to sign url (check service account + permissions)")
	}
	return u, exp, nil
}
