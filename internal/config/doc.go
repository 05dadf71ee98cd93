// Package config provides configuration parsing for assetkit projects.
//
// The configuration is stored in assetkit.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "static": {
//	    "dir": "wwwroot",
//	    "basePath": "/",
//	    "exclude": ["**/*.scss"]
//	  },
//	  "fingerprint": {
//	    "enabled": true,
//	    "patterns": [
//	      {"pattern": "*.lib.module.js", "expression": "#[.{fingerprint}]!"}
//	    ]
//	  },
//	  "contentTypes": [
//	    {"pattern": "*.mjs", "contentType": "text/javascript"}
//	  ],
//	  "compression": {
//	    "enabled": true,
//	    "formats": ["gzip", "br"]
//	  },
//	  "build": {
//	    "output": "dist",
//	    "mode": "publish"
//	  },
//	  "dev": {
//	    "port": 3000
//	  },
//	  "publish": {
//	    "bucket": "my-assets",
//	    "prefix": "static/"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Manifest:", cfg.ManifestPath())
package config
