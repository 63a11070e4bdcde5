// Command mangactl inspects a local manga library without running the
// server.
//
// Usage:
//
//	mangactl [--manifest path] [--log-level level] [--json] <command>
//
// Commands:
//
//	index <root>          Index root, update the manifest, list entries.
//	chapters <entry-dir>  List the chapters of one entry.
//	pages <chapter-url>   List the page image URLs of a chapter.
//	page <image-url>      Write one page image to stdout or --output.
//	prune <root>          Drop manifest rows under root that no longer exist.
//	watch <root>          Index root and print change events until interrupted.
//
// Environment:
//
//	DATA_DIR - default manifest location ($DATA_DIR/library-manifest.json)
//	LOG_LEVEL - default log level
package main
