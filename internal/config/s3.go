package config

type S3 struct {
	Region    string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"AWS_ACCESS_KEY"`
	SecretKey string `env:"AWS_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET,required,notEmpty"`
	KeyPrefix string `env:"S3_KEY_PREFIX" envDefault:"products"`

	// Endpoint and UsePathStyle target S3-compatible stores such as MinIO.
	Endpoint     string `env:"S3_ENDPOINT"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE"`

	// PublicBaseURL overrides the virtual-hosted AWS URL returned for uploads.
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}
