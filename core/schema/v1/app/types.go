package app

// Manifest describes one app package. (id, version) is the unique registry
// key and must match the storage location under apps/<id>/<version>.
type Manifest struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Entry        EntryPoint `json:"entry"`
	Backend      *Backend   `json:"backend,omitempty"`
	Capabilities []string   `json:"capabilities,omitempty"`
	Providers    []string   `json:"providers,omitempty"`
	DefaultModel string     `json:"default_model,omitempty"`
	Author       *Author    `json:"author,omitempty"`
}

type EntryPoint struct {
	Type string `json:"type,omitempty"`
	Path string `json:"path"`
}

type Backend struct {
	Type    string `json:"type,omitempty"`
	Command string `json:"command,omitempty"`
	Port    int    `json:"port,omitempty"`
}

type Author struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// SignatureRecord is a detached attestation binding an artifact hash to a
// public key. Field names follow the on-disk signature file format.
type SignatureRecord struct {
	AppID        string `json:"appId"`
	Version      string `json:"version"`
	Hash         string `json:"hash"`
	HashAlg      string `json:"hashAlg"`
	Signature    string `json:"signature"`
	SignatureAlg string `json:"signatureAlg"`
	PublicKey    string `json:"publicKey"`
	CreatedAt    string `json:"createdAt"`
}

// Index is the registry's single system-of-record document.
type Index struct {
	Apps map[string]AppEntry `json:"apps"`
}

type AppEntry struct {
	Latest   string                  `json:"latest,omitempty"`
	Versions map[string]VersionEntry `json:"versions"`
}

// VersionEntry records one published version. Path, Manifest, and Signature
// are relative to the registry root; Hash is the artifact digest recorded
// at publish time.
type VersionEntry struct {
	Path      string `json:"path"`
	Manifest  string `json:"manifest"`
	Signature string `json:"signature,omitempty"`
	Hash      string `json:"hash"`
}
