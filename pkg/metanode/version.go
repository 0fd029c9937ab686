package metanode

// Version is the release version of the metanode module, reported by the
// nodectl CLI.
const Version = "0.1.0"
