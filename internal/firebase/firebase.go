package firebase

import (
	"context"
	"fmt"
	"os"

	"cragline/backend/internal/config"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Clients bundles the Firebase + GCP clients the API needs.
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
	Storage   *storage.Client
	Messaging *messaging.Client
	IAM       *credentials.IamCredentialsClient

	ProjectID string
	Bucket    string
}

func NewClients(ctx context.Context, cfg config.Config) (*Clients, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
	}

	opts := credentialOptions()

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore: %w", err)
	}

	st, err := storage.NewClient(ctx, opts...)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	// push and URL signing are optional
	msg, _ := app.Messaging(ctx)
	iamClient, _ := credentials.NewIamCredentialsClient(ctx, opts...)

	return &Clients{
		App:       app,
		Auth:      authClient,
		Firestore: fs,
		Storage:   st,
		Messaging: msg,
		IAM:       iamClient,
		ProjectID: cfg.ProjectID,
		Bucket:    cfg.StorageBucket,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Firestore != nil {
		_ = c.Firestore.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.IAM != nil {
		_ = c.IAM.Close()
	}
}

// credentialOptions prefers FIREBASE_SERVICE_ACCOUNT_JSON (raw json), then
// GOOGLE_APPLICATION_CREDENTIALS (file path). On Cloud Run neither is set and
// Application Default Credentials are used.
func credentialOptions() []option.ClientOption {
	if raw := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
