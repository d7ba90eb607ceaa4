package proxy

// MaxBodySize is the largest body forwarded in either direction.
const MaxBodySize = maxBodySize
