package crypto

import (
	"encoding/json"
	"fmt"
)

// ErrMetadataMissingField is returned when decrypted metadata JSON lacks a
// required field.
var ErrMetadataMissingField = fmt.Errorf("crypto: metadata missing required field")

// Envelope is the per-file symmetric key material: FEK, MEK, and their
// nonces. FEK and MEK never leave the client holding them, except wrapped
// per recipient by the share-key wrapper (see sharewrap.go); the two nonces
// are sent unwrapped alongside a share.
type Envelope struct {
	FEK           []byte
	MEK           []byte
	FileNonce     []byte
	MetadataNonce []byte
}

// fileMetadata is the plaintext JSON object encrypted under MEK.
type fileMetadata struct {
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

// EncryptedFile is the result of EncryptFile: ciphertext bytes (not yet
// base64-encoded) plus the envelope that produced them.
type EncryptedFile struct {
	FileCiphertext     []byte
	MetadataCiphertext []byte
	Envelope           Envelope
}

// EncryptFile generates a fresh envelope and encrypts plaintext and its
// metadata under it.
func EncryptFile(plaintext []byte, filename string) (*EncryptedFile, error) {
	fek, err := GenerateSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt file: %w", err)
	}
	mek, err := GenerateSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt file: %w", err)
	}
	fileNonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt file: %w", err)
	}
	metadataNonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt file: %w", err)
	}

	fileCt, err := EncryptCTR(fek, fileNonce, plaintext)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt file content: %w", err)
	}

	metaPlain, err := json.Marshal(fileMetadata{Filename: filename, Filesize: int64(len(plaintext))})
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal file metadata: %w", err)
	}
	metaCt, err := EncryptCTR(mek, metadataNonce, metaPlain)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt file metadata: %w", err)
	}

	return &EncryptedFile{
		FileCiphertext:     fileCt,
		MetadataCiphertext: metaCt,
		Envelope: Envelope{
			FEK:           fek,
			MEK:           mek,
			FileNonce:     fileNonce,
			MetadataNonce: metadataNonce,
		},
	}, nil
}

// DecryptedFile is the result of DecryptFile.
type DecryptedFile struct {
	Plaintext []byte
	Filename  string
	Filesize  int64
}

// DecryptFile reverses EncryptFile given the ciphertexts and the envelope
// that produced (or, for shared files, was unwrapped to reproduce) them.
func DecryptFile(fileCt, metadataCt []byte, env Envelope) (*DecryptedFile, error) {
	plaintext, err := DecryptCTR(env.FEK, env.FileNonce, fileCt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt file content: %w", err)
	}

	metaPlain, err := DecryptCTR(env.MEK, env.MetadataNonce, metadataCt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt file metadata: %w", err)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(metaPlain, &meta); err != nil {
		return nil, fmt.Errorf("crypto: parse file metadata: %w", err)
	}

	filenameRaw, ok := meta["filename"]
	if !ok {
		return nil, fmt.Errorf("%w: filename", ErrMetadataMissingField)
	}
	filename, ok := filenameRaw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: filename", ErrMetadataMissingField)
	}

	filesizeRaw, ok := meta["filesize"]
	if !ok {
		return nil, fmt.Errorf("%w: filesize", ErrMetadataMissingField)
	}
	filesizeFloat, ok := filesizeRaw.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: filesize", ErrMetadataMissingField)
	}

	return &DecryptedFile{
		Plaintext: plaintext,
		Filename:  filename,
		Filesize:  int64(filesizeFloat),
	}, nil
}

// DecryptMetadata decrypts and parses just the metadata ciphertext,
// without requiring the file ciphertext. Used by list views, which never
// fetch file content.
func DecryptMetadata(metadataCt []byte, mek, metadataNonce []byte) (filename string, filesize int64, err error) {
	metaPlain, err := DecryptCTR(mek, metadataNonce, metadataCt)
	if err != nil {
		return "", 0, fmt.Errorf("crypto: decrypt file metadata: %w", err)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(metaPlain, &meta); err != nil {
		return "", 0, fmt.Errorf("crypto: parse file metadata: %w", err)
	}

	filenameRaw, ok := meta["filename"]
	if !ok {
		return "", 0, fmt.Errorf("%w: filename", ErrMetadataMissingField)
	}
	name, ok := filenameRaw.(string)
	if !ok {
		return "", 0, fmt.Errorf("%w: filename", ErrMetadataMissingField)
	}

	filesizeRaw, ok := meta["filesize"]
	if !ok {
		return "", 0, fmt.Errorf("%w: filesize", ErrMetadataMissingField)
	}
	sizeFloat, ok := filesizeRaw.(float64)
	if !ok {
		return "", 0, fmt.Errorf("%w: filesize", ErrMetadataMissingField)
	}

	return name, int64(sizeFloat), nil
}

// BuildFileSignatureInput constructs the canonical byte sequence signed
// over a file's ciphertext and metadata ciphertext:
//
//	username + "|" + lower_hex(sha256(file_ct)) + "|" + lower_hex(sha256(metadata_ct))
//
// Both ciphertext arguments are raw ciphertext bytes, not base64.
func BuildFileSignatureInput(username string, fileCt, metadataCt []byte) []byte {
	s := username + "|" + SHA256Hex(fileCt) + "|" + SHA256Hex(metadataCt)
	return []byte(s)
}
