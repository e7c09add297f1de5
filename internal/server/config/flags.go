package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/contractsign/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-r string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-s string     master secret key
//	-l string     link base URL
//	-m string     SMTP relay address (host:port)
//	-f string     mail From address
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-v string     log level
//	-i duration   sweep interval (e.g., "30m")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so -c/-config and unrelated flags do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		"a", "r", "d", "s", "l", "m", "f", "u", "p", "b", "g", "e", "v", "i")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "master secret key")
	fs.StringVar(&config.LinkBaseURL, "l", config.LinkBaseURL, "public link base URL")
	fs.StringVar(&config.SMTPAddr, "m", config.SMTPAddr, "SMTP relay host:port")
	fs.StringVar(&config.MailFrom, "f", config.MailFrom, "mail From address")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level (debug, info, warn, error)")
	fs.DurationVar(&config.SweepInterval, "i", config.SweepInterval, "housekeeping sweep interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
