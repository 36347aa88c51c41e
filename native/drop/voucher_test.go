package drop

import (
	"errors"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func signedStage() *StageConfig {
	return &StageConfig{
		Kind:                  StageKindSigned,
		PriceStart:            big.NewInt(200),
		PriceEnd:              big.NewInt(200),
		TimeStart:             1_000,
		TimeEnd:               2_000,
		ToTokenID:             5,
		MaxPerWallet:          3,
		MaxSupplyForStage:     50,
		FeeBps:                250,
		RestrictFeeRecipients: true,
	}
}

func testVoucher(cfg *StageConfig) *MintVoucher {
	return &MintVoucher{
		Collection:   testAddr(0xC0),
		Minter:       testAddr(0x01),
		FeeRecipient: testAddr(0xFE),
		Config:       cfg,
		Salt:         [32]byte{0x42},
	}
}

func TestVoucherSignRecover(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	voucher := testVoucher(signedStage())
	sig, err := SignVoucher(voucher, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	signer, _, err := RecoverVoucherSigner(voucher, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	want := ethcrypto.PubkeyToAddress(key.PublicKey)
	if signer != [20]byte(want) {
		t.Fatalf("recovered %x, want %x", signer, want)
	}
}

func TestVoucherRecoverRejectsTampering(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	voucher := testVoucher(signedStage())
	sig, err := SignVoucher(voucher, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := testVoucher(signedStage())
	tampered.Config.PriceStart = big.NewInt(1)
	tampered.Config.PriceEnd = big.NewInt(1)
	signer, _, err := RecoverVoucherSigner(tampered, sig)
	if err == nil {
		want := ethcrypto.PubkeyToAddress(key.PublicKey)
		if signer == [20]byte(want) {
			t.Fatal("tampered voucher recovered the original signer")
		}
	}
}

func TestVoucherDigestChangesWithSalt(t *testing.T) {
	a := testVoucher(signedStage())
	b := testVoucher(signedStage())
	b.Salt = [32]byte{0x43}
	digestA, err := a.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	digestB, err := b.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if digestA == digestB {
		t.Fatal("different salts produced the same digest")
	}
}

func TestVoucherRecoverRejectsShortSignature(t *testing.T) {
	voucher := testVoucher(signedStage())
	if _, _, err := RecoverVoucherSigner(voucher, make([]byte, 10)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestCheckTemplateBounds(t *testing.T) {
	tpl := &SignerTemplate{
		MinPrice:                       big.NewInt(100),
		MaxMaxPerWallet:                5,
		MinTimeStart:                   500,
		MaxTimeEnd:                     3_000,
		MaxStageSupply:                 100,
		MinFeeBps:                      100,
		MaxFeeBps:                      1_000,
		RequireFeeRecipientRestriction: true,
	}
	if err := CheckTemplateBounds(signedStage(), tpl); err != nil {
		t.Fatalf("in-bounds stage rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*StageConfig)
		want   error
	}{
		{"price below minimum", func(c *StageConfig) { c.PriceEnd = big.NewInt(50) }, ErrInvalidSignedPrice},
		{"wallet cap above bound", func(c *StageConfig) { c.MaxPerWallet = 6 }, ErrInvalidSignedMaxPerWallet},
		{"start before bound", func(c *StageConfig) { c.TimeStart = 400 }, ErrInvalidSignedStartTime},
		{"end after bound", func(c *StageConfig) { c.TimeEnd = 4_000 }, ErrInvalidSignedEndTime},
		{"supply above bound", func(c *StageConfig) { c.MaxSupplyForStage = 200 }, ErrInvalidSignedStageSupply},
		{"fee below range", func(c *StageConfig) { c.FeeBps = 50 }, ErrInvalidSignedFeeBps},
		{"fee above range", func(c *StageConfig) { c.FeeBps = 2_000 }, ErrInvalidSignedFeeBps},
		{"unrestricted recipients", func(c *StageConfig) { c.RestrictFeeRecipients = false }, ErrSignedMintsMustRestrictFeeRecipients},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := signedStage()
			tc.mutate(cfg)
			if err := CheckTemplateBounds(cfg, tpl); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
