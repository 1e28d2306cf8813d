package config

type BizKey struct {
	// NodeID must be unique per running instance (0-1023).
	NodeID int64 `env:"BIZKEY_NODE_ID" envDefault:"1" validate:"min=0,max=1023"`
}
