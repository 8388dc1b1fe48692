// Command pictor inspects and maintains the pictor registration store:
// listing and showing registered images, flagging and rating them,
// cleaning up orphans, and managing configuration.
package main
