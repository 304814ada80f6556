package config

// Loading configuration:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Overriding from cobra flags:
//
//	cfg, err := config.Load(cfgFile, map[string]interface{}{
//	    "listen":        ":9000",
//	    "strict-status": true,
//	    "log-level":     "debug",
//	})
//
// A minimal .goingviral.yaml:
//
//	apify:
//	  base_url: https://api.apify.com/v2
//	variants:
//	  instagram-posts:
//	    poll_interval: 3s
//	    max_attempts: 40
//	server:
//	  listen_addr: :8080
//	  strict_status_codes: true
//	storage:
//	  driver: file
//	  directory: ./snapshots
//
// The scraping token is read from APIFY_API_KEY (or a credential stored with
// `goingviral auth set`) and is never required for Load to succeed.
