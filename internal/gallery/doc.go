// Package gallery finds image files and renders simple HTML pages for them:
// a plain listing of links, and a gallery showing each image with its
// dimensions.
package gallery
