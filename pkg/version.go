package nikki

// Version is the current release of nikki.
const Version = "0.1.0"
