// Package config builds source trees from a declarative JSON description.
//
// A document describes one source. Decorators nest their inner source under
// "source" (tee, gzip) or list members under "sources" (concat):
//
//	{
//	  "type": "gzip",
//	  "source": {
//	    "type": "resilient",
//	    "url": "https://feeds.example.com/daily.gz",
//	    "headers": {"Authorization": "Bearer ${FEED_TOKEN}"},
//	    "timeout": "30s",
//	    "max_reconnects": 5
//	  }
//	}
//
// Header values and credential fields pass through a secret.Resolver before
// the tree is built, so ${NAME} and secretref:<provider>:<ref> values never
// have to be written into the file. Credential blocks name a method
// registered with auth.DefaultRegistry ("basic", "bearer", "api_key", "jwt").
package config
