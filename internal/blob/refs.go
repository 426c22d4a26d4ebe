package blob

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"go-azml-client/internal/model"
)

// DefaultSASExpiry bounds the access signatures embedded in job specs.
const DefaultSASExpiry = time.Hour

// Stager names, uploads and downloads the blobs one batch job exchanges
// with the service, and builds the references embedded in the job spec.
type Stager struct {
	Store     Store
	Container string
	Prefix    string
	Account   string
	AccessKey string
	SASExpiry time.Duration
}

// ConnectionString renders the account credentials in the form the
// service expects inside a blob reference.
func (st *Stager) ConnectionString() string {
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s", st.Account, st.AccessKey)
}

// InputKey returns the staging key for a named input.
func (st *Stager) InputKey(name, stamp string) string {
	return path.Join(st.Prefix, stamp+"-input-"+name+".csv")
}

// OutputKey returns the pre-allocated key for a named output.
func (st *Stager) OutputKey(name, stamp string) string {
	return path.Join(st.Prefix, stamp+"-output-"+name+".csv")
}

// StageInput uploads one encoded input and returns its reference.
func (st *Stager) StageInput(name, stamp string, data []byte) (model.BlobRef, error) {
	key := st.InputKey(name, stamp)
	if err := st.Store.Put(key, bytes.NewReader(data), int64(len(data))); err != nil {
		return model.BlobRef{}, fmt.Errorf("failed to stage input %s: %w", name, err)
	}
	return st.ref(key, http.MethodGet)
}

// OutputRef allocates the reference the service will write a named
// output to. Nothing is uploaded; the signature grants write access.
func (st *Stager) OutputRef(name, stamp string) (model.BlobRef, error) {
	return st.ref(st.OutputKey(name, stamp), http.MethodPut)
}

// Download fetches and returns the blob a reference points at.
func (st *Stager) Download(ref model.BlobRef) ([]byte, error) {
	key := ref.RelativeLocation
	if ref.Container() == st.Container {
		key = ref.Key()
	}
	rc, err := st.Store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", ref.RelativeLocation, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref.RelativeLocation, err)
	}
	return data, nil
}

func (st *Stager) ref(key, method string) (model.BlobRef, error) {
	expiry := st.SASExpiry
	if expiry == 0 {
		expiry = DefaultSASExpiry
	}
	signed, err := st.Store.SignedURL(key, method, expiry)
	if err != nil {
		return model.BlobRef{}, fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return model.BlobRef{
		ConnectionString: st.ConnectionString(),
		RelativeLocation: st.Container + "/" + key,
		SasURI:           signed,
	}, nil
}
