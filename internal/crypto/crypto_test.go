package crypto

import "testing"

func TestSymmetricRoundTrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatal(err)
	}
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	plaintexts := [][]byte{
		[]byte(""),
		[]byte("hello"),
		make([]byte, 1<<20),
	}

	for _, pt := range plaintexts {
		ct, err := EncryptCTR(key, nonce, pt)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		got, err := DecryptCTR(key, nonce, ct)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if string(got) != string(pt) {
			t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(pt))
		}
	}
}

func TestEncryptCTRRejectsBadSizes(t *testing.T) {
	key := make([]byte, SymmetricKeySize)
	nonce := make([]byte, NonceSize)

	if _, err := EncryptCTR(make([]byte, 16), nonce, []byte("x")); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := EncryptCTR(key, make([]byte, 8), []byte("x")); err == nil {
		t.Error("expected error for short nonce")
	}
}

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex([]byte(""))
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("SHA256Hex(\"\") = %q, want %q", got, want)
	}
}

func TestB64RoundTrip(t *testing.T) {
	data := []byte{0, 1, 2, 255, 254, 253}
	encoded := B64Encode(data)
	decoded, err := B64Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != string(data) {
		t.Errorf("base64 round trip mismatch")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	cases := []struct {
		plaintext []byte
		filename  string
	}{
		{[]byte("hello"), "h.txt"},
		{[]byte(""), "empty.bin"},
		{make([]byte, 4096), "big.bin"},
	}

	for _, c := range cases {
		enc, err := EncryptFile(c.plaintext, c.filename)
		if err != nil {
			t.Fatalf("EncryptFile(%q): %v", c.filename, err)
		}
		dec, err := DecryptFile(enc.FileCiphertext, enc.MetadataCiphertext, enc.Envelope)
		if err != nil {
			t.Fatalf("DecryptFile(%q): %v", c.filename, err)
		}
		if string(dec.Plaintext) != string(c.plaintext) {
			t.Errorf("plaintext mismatch for %q", c.filename)
		}
		if dec.Filename != c.filename {
			t.Errorf("filename = %q, want %q", dec.Filename, c.filename)
		}
		if dec.Filesize != int64(len(c.plaintext)) {
			t.Errorf("filesize = %d, want %d", dec.Filesize, len(c.plaintext))
		}
	}
}

func TestEnvelopeIndependence(t *testing.T) {
	a, err := EncryptFile([]byte("same content"), "f.txt")
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptFile([]byte("same content"), "f.txt")
	if err != nil {
		t.Fatal(err)
	}

	if string(a.Envelope.FEK) == string(b.Envelope.FEK) {
		t.Error("FEK reused across independent encryptions")
	}
	if string(a.Envelope.MEK) == string(b.Envelope.MEK) {
		t.Error("MEK reused across independent encryptions")
	}
	if string(a.FileCiphertext) == string(b.FileCiphertext) {
		t.Error("ciphertext identical across independent encryptions")
	}
}

func TestDecryptFileMissingMetadataField(t *testing.T) {
	mek, _ := GenerateSymmetricKey()
	nonce, _ := GenerateNonce()
	badMeta, err := EncryptCTR(mek, nonce, []byte(`{"filename":"x.txt"}`))
	if err != nil {
		t.Fatal(err)
	}

	fek, _ := GenerateSymmetricKey()
	fileNonce, _ := GenerateNonce()
	fileCt, _ := EncryptCTR(fek, fileNonce, []byte("data"))

	env := Envelope{FEK: fek, MEK: mek, FileNonce: fileNonce, MetadataNonce: nonce}
	_, err = DecryptFile(fileCt, badMeta, env)
	if err == nil {
		t.Fatal("expected error for missing filesize field")
	}
}

func TestBuildFileSignatureInputDeterministic(t *testing.T) {
	fileCt := []byte("ciphertext-bytes")
	metaCt := []byte("metadata-ciphertext-bytes")

	a := BuildFileSignatureInput("alice", fileCt, metaCt)
	b := BuildFileSignatureInput("alice", fileCt, metaCt)
	if string(a) != string(b) {
		t.Error("signature input not deterministic for identical inputs")
	}

	c := BuildFileSignatureInput("bob", fileCt, metaCt)
	if string(a) == string(c) {
		t.Error("signature input did not change with username")
	}
}

func TestEd25519SignVerify(t *testing.T) {
	kp, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("sign me")

	sig, err := SignEd25519(kp.PrivateKey, msg)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyEd25519(kp.PublicKey, msg, sig) {
		t.Error("valid Ed25519 signature failed to verify")
	}

	other, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if VerifyEd25519(other.PublicKey, msg, sig) {
		t.Error("signature verified against the wrong public key")
	}
}

func TestMLDSA87SignVerify(t *testing.T) {
	kp, err := GenerateMLDSA87KeyPair()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("sign me too")

	sig, err := SignMLDSA87(kp.PrivateKey, msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyMLDSA87(kp.PublicKey, msg, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("valid ML-DSA-87 signature failed to verify")
	}
}

func TestHybridSignatureRoundTrip(t *testing.T) {
	ed, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatal(err)
	}
	pq, err := GenerateMLDSA87KeyPair()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("alice|2026-07-31T00:00:00.000Z|POST|/api/fs/upload|{}")

	sig, err := SignHybrid(ed.PrivateKey, pq.PrivateKey, msg)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := VerifyHybrid(ed.PublicKey, pq.PublicKey, msg, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("valid hybrid signature failed to verify")
	}

	packed := PackHybridSignature(sig)
	unpacked, err := UnpackHybridSignature(packed)
	if err != nil {
		t.Fatal(err)
	}
	ok, err = VerifyHybrid(ed.PublicKey, pq.PublicKey, msg, unpacked)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("signature failed to verify after pack/unpack round trip")
	}
}

func TestShareKeyWrapRoundTrip(t *testing.T) {
	enc, err := EncryptFile([]byte("secret payload"), "s.bin")
	if err != nil {
		t.Fatal(err)
	}

	recipient, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatal(err)
	}

	wrapped, err := WrapEnvelopeForRecipient(enc.Envelope, recipient.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	unwrapped, err := UnwrapEnvelope(wrapped, recipient.PrivateKey, enc.Envelope.FileNonce, enc.Envelope.MetadataNonce)
	if err != nil {
		t.Fatal(err)
	}

	dec, err := DecryptFile(enc.FileCiphertext, enc.MetadataCiphertext, *unwrapped)
	if err != nil {
		t.Fatal(err)
	}
	if string(dec.Plaintext) != "secret payload" {
		t.Errorf("unwrapped plaintext = %q", dec.Plaintext)
	}
}

func TestKeyBundlePublicRoundTrip(t *testing.T) {
	kb, err := GenerateKeyBundle()
	if err != nil {
		t.Fatal(err)
	}

	pub := kb.PublicBundle()
	raw, err := pub.MarshalJSONBytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParsePublicBundle(raw)
	if err != nil {
		t.Fatal(err)
	}

	x25519Pub, err := parsed.X25519PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if string(x25519Pub) != string(kb.X25519.PublicKey) {
		t.Error("X25519 public key mismatch after round trip")
	}

	edPub, err := parsed.Ed25519PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if string(edPub) != string(kb.Ed25519.PublicKey) {
		t.Error("Ed25519 public key mismatch after round trip")
	}

	mlDSAPub, err := parsed.MLDSA87PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if string(mlDSAPub) != string(kb.MLDSA87.PublicKey) {
		t.Error("ML-DSA-87 public key mismatch after round trip")
	}
}
